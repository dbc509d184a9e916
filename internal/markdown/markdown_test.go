package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAgenda(t *testing.T) {
	src := `# Meeting with Acme

1. **Intro** (5 min)
2. Review *pricing* options
3. Next steps

## Open questions

- Budget owner?
- Timeline for ` + "`SSO`" + ` rollout
`
	want := `Meeting with Acme

1. Intro (5 min)
2. Review pricing options
3. Next steps

Open questions

• Budget owner?
• Timeline for SSO rollout`
	assert.Equal(t, want, Render(src, Plain()))
}

func TestRenderStyledInline(t *testing.T) {
	styles := Plain()
	styles.Strong = func(s string) string { return "<b>" + s + "</b>" }
	styles.Heading = func(s string) string { return "[" + s + "]" }
	out := Render("# Title\n\n**Summary**\n- done", styles)
	assert.Equal(t, "[Title]\n\n<b>Summary</b>\n\n• done", out)
}

func TestRenderParagraphsAndLinks(t *testing.T) {
	out := Render("First line\nwraps here.\n\nSee [docs](https://acme.io/docs).", Plain())
	assert.Equal(t, "First line wraps here.\n\nSee docs (https://acme.io/docs).", out)
}

func TestRenderNestedList(t *testing.T) {
	out := Render("- parent\n  - child\n- sibling", Plain())
	assert.Equal(t, "• parent\n  • child\n• sibling", out)
}
