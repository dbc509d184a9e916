package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedObserver struct {
	features []string
	errs     []error
}

func (r *recordedObserver) ObserveAI(feature string, err error) {
	r.features = append(r.features, feature)
	r.errs = append(r.errs, err)
}

func replyWith(parts ...string) string {
	type part struct {
		Text string `json:"text"`
	}
	ps := make([]part, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, part{Text: p})
	}
	body := map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": ps}}},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func TestGenerateSendsPayload(t *testing.T) {
	var got map[string]any
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		io.WriteString(w, replyWith("Hello ", "world"))
	}))
	defer srv.Close()

	obs := &recordedObserver{}
	c := NewClient(Config{APIKey: "k-123", Model: "test-model", BaseURL: srv.URL}, zerolog.Nop())
	c.SetObserver(obs)

	req := CardRequest("image/png", []byte{0x89, 'P', 'N', 'G'})
	req.Schema = map[string]any{"type": "OBJECT"}
	text, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "k-123", gotKey)

	contents := got["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	assert.Equal(t, "image/png", inline["mime_type"])
	assert.Equal(t, "iVBORw==", inline["data"])
	cfg := got["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", cfg["response_mime_type"])

	assert.Equal(t, []string{FeatureCard}, obs.features)
	assert.NoError(t, obs.errs[0])
}

func TestGenerateWithoutSchemaOmitsGenerationConfig(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		io.WriteString(w, replyWith("42"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zerolog.Nop())
	_, err := c.Generate(context.Background(), ScoreRequest(LeadFacts{CompanyName: "Acme"}))
	require.NoError(t, err)
	assert.NotContains(t, raw, "generationConfig")
}

func TestGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/broken:generateContent":
			http.Error(w, "quota", http.StatusTooManyRequests)
		case "/models/empty:generateContent":
			io.WriteString(w, `{"candidates":[]}`)
		default:
			io.WriteString(w, "not json")
		}
	}))
	defer srv.Close()

	obs := &recordedObserver{}
	for _, model := range []string{"broken", "empty", "garbage"} {
		c := NewClient(Config{APIKey: "k", Model: model, BaseURL: srv.URL}, zerolog.Nop())
		c.SetObserver(obs)
		_, err := c.Generate(context.Background(), EmailRequest(LeadFacts{}))
		assert.Error(t, err, model)
	}
	require.Len(t, obs.errs, 3)
	assert.True(t, errors.Is(obs.errs[1], ErrEmptyResponse))
}

func TestGenerateDisabled(t *testing.T) {
	obs := &recordedObserver{}
	c := NewClient(Config{}, zerolog.Nop())
	c.SetObserver(obs)
	assert.False(t, c.Enabled())
	_, err := c.Generate(context.Background(), AgendaRequest(LeadFacts{}))
	assert.True(t, errors.Is(err, ErrDisabled))
	assert.Len(t, obs.errs, 1)
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())
	_, err := c.Generate(context.Background(), ScoreRequest(LeadFacts{}))
	assert.Error(t, err)
}

func TestScoreRequestEmbedsFacts(t *testing.T) {
	req := ScoreRequest(LeadFacts{
		CompanyName:  "Acme",
		Stage:        "Negotiation",
		Value:        "1000",
		MonthlyValue: "100",
		Notes: []NoteFact{
			{Text: "Loved the demo", Sentiment: "positive"},
			{Text: "Budget unclear"},
		},
	})
	require.Len(t, req.Parts, 1)
	prompt := req.Parts[0].Text
	for _, want := range []string{"Acme", "Negotiation", "1000", "100", "[positive] Loved the demo", "[unknown] Budget unclear"} {
		assert.Contains(t, prompt, want)
	}
	assert.Nil(t, req.Schema)
	assert.Equal(t, FeatureScore, req.Feature)
}

func TestStructuredRequestsCarrySchemas(t *testing.T) {
	ext := AccountExtractionRequest("  Acme needs SEO for ten thousand dollars ")
	assert.Contains(t, ext.Parts[0].Text, "Acme needs SEO for ten thousand dollars")
	props := ext.Schema["properties"].(map[string]any)
	assert.Contains(t, props, "monthlyValue")
	assert.Contains(t, props, "contactEmail")

	note := NoteStructureRequest("they liked it")
	assert.Contains(t, note.Schema["properties"].(map[string]any), "actionItems")

	tr := TranscriptionRequest("audio/wav", []byte("RIFF"), "en-US")
	assert.True(t, strings.Contains(tr.Parts[0].Text, "en-US"))
	assert.Equal(t, "audio/wav", tr.Parts[1].MimeType)
}

func TestParseScore(t *testing.T) {
	cases := map[string]int{
		"72":                    72,
		"Score: 85 out of 100":  85,
		"150":                   100,
		"-4":                    0,
		"":                      DefaultScore,
		"no idea":               DefaultScore,
		"Given Q3 momentum, 72": 72,
		"  64\n":                64,
		"3rd call went well":    DefaultScore,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseScore(in), in)
	}
}

func TestParseContactCard(t *testing.T) {
	card, err := ParseContactCard("```json\n{\"companyName\":\"Acme\",\"contactEmail\":\"jo@acme.io\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Acme", card.CompanyName)
	assert.Equal(t, "jo@acme.io", card.ContactEmail)

	_, err = ParseContactCard("{companyName: Acme")
	assert.Error(t, err)
}

func TestParseNoteStructureNormalisesSentiment(t *testing.T) {
	n, err := ParseNoteStructure(`{"summary":["a"],"sentiment":"Positive"}`)
	require.NoError(t, err)
	assert.Equal(t, "positive", n.Sentiment)

	n, err = ParseNoteStructure(`{"summary":[],"sentiment":"ecstatic"}`)
	require.NoError(t, err)
	assert.Equal(t, "neutral", n.Sentiment)
}

func TestParseAccountExtraction(t *testing.T) {
	out, err := ParseAccountExtraction(`{"companyName":"Acme","value":12000.5}`)
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	assert.InDelta(t, 12000.5, *out.Value, 1e-9)
	assert.Nil(t, out.MonthlyValue)
}
