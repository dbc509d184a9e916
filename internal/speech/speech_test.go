package speech

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadboard/internal/ai"
)

func TestDictationLifecycle(t *testing.T) {
	var d Dictation
	assert.Equal(t, Idle, d.State())

	require.NoError(t, d.Begin())
	assert.Equal(t, Listening, d.State())
	assert.True(t, errors.Is(d.Begin(), ErrBusy))

	d.Feed(Segment{Text: "Acme corp", Final: false})
	assert.Equal(t, "Acme corp", d.Interim())
	d.Feed(Segment{Text: "Acme Corp needs", Final: true})
	d.Feed(Segment{Text: "  a new website ", Final: true})
	d.Feed(Segment{Text: "   ", Final: true})

	transcript, ok := d.End()
	require.True(t, ok)
	assert.Equal(t, "Acme Corp needs a new website", transcript)
	assert.Equal(t, Processing, d.State())
	assert.True(t, errors.Is(d.Begin(), ErrBusy))

	d.Done()
	assert.Equal(t, Idle, d.State())
}

func TestDictationEmptyTranscriptAborts(t *testing.T) {
	var d Dictation
	require.NoError(t, d.Begin())
	d.Feed(Segment{Text: "only interim"})
	transcript, ok := d.End()
	assert.False(t, ok)
	assert.Empty(t, transcript)
	assert.Equal(t, Idle, d.State())
}

func TestDictationTargetsAreIndependent(t *testing.T) {
	var fields, notes Dictation
	require.NoError(t, fields.Begin())
	require.NoError(t, notes.Begin())
	notes.Fail()
	assert.Equal(t, Listening, fields.State())
	assert.Equal(t, Idle, notes.State())
}

func TestDictationConcurrentFeed(t *testing.T) {
	var d Dictation
	require.NoError(t, d.Begin())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Feed(Segment{Text: "word", Final: true})
		}()
	}
	wg.Wait()
	transcript, ok := d.End()
	require.True(t, ok)
	assert.Len(t, transcript, 50*len("word")+49)
}

type fakeGenerator struct {
	req  ai.Request
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	f.req = req
	return f.text, f.err
}

func TestCommandRecognizerTranscribesCapture(t *testing.T) {
	gen := &fakeGenerator{text: " hello there \n"}
	r := NewCommandRecognizer("printf RIFFDATA", "", gen, zerolog.Nop())

	var got []Segment
	err := r.Recognize(context.Background(), func(s Segment) { got = append(got, s) })
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Segment{Text: "hello there", Final: true}, got[0])
	assert.Equal(t, ai.FeatureTranscribe, gen.req.Feature)
	assert.Equal(t, []byte("RIFFDATA"), gen.req.Parts[1].Data)
	assert.Contains(t, gen.req.Parts[0].Text, DefaultLocale)
}

func TestCommandRecognizerStopsOnCancel(t *testing.T) {
	gen := &fakeGenerator{text: "stopped"}
	r := NewCommandRecognizer("sleep 30", "en-GB", gen, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Recognize(ctx, func(Segment) {})
	assert.True(t, errors.Is(err, ErrNoAudio))
}

func TestCommandRecognizerErrors(t *testing.T) {
	r := NewCommandRecognizer("", "", &fakeGenerator{}, zerolog.Nop())
	assert.True(t, errors.Is(r.Recognize(context.Background(), func(Segment) {}), ErrNoCaptureCommand))

	failing := NewCommandRecognizer("printf x", "", &fakeGenerator{err: ai.ErrDisabled}, zerolog.Nop())
	err := failing.Recognize(context.Background(), func(Segment) {})
	assert.True(t, errors.Is(err, ai.ErrDisabled))
}
