package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"leadboard/internal/ai"
)

const (
	DefaultCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t wav -"
	DefaultLocale  = "en-US"
	audioMimeType  = "audio/wav"
)

var (
	// ErrNoCaptureCommand means speech capture is not configured.
	ErrNoCaptureCommand = errors.New("no speech capture command configured")
	// ErrNoAudio means the capture command produced nothing.
	ErrNoAudio = errors.New("no audio captured")
)

// Recognizer listens until ctx is cancelled and reports segments through
// emit. It returns once the last segment has been emitted.
type Recognizer interface {
	Recognize(ctx context.Context, emit func(Segment)) error
}

// Generator is the generative API used for transcription.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

// CommandRecognizer records audio from a capture command that writes WAV
// to stdout, then transcribes the whole recording as one final segment.
type CommandRecognizer struct {
	command []string
	locale  string
	gen     Generator
	log     zerolog.Logger
}

// NewCommandRecognizer builds a recognizer. command is split on spaces.
func NewCommandRecognizer(command, locale string, gen Generator, logger zerolog.Logger) *CommandRecognizer {
	if locale == "" {
		locale = DefaultLocale
	}
	return &CommandRecognizer{
		command: strings.Fields(command),
		locale:  locale,
		gen:     gen,
		log:     logger,
	}
}

// Recognize starts capture, stops it when ctx is done and transcribes what
// was recorded.
func (r *CommandRecognizer) Recognize(ctx context.Context, emit func(Segment)) error {
	if len(r.command) == 0 {
		return ErrNoCaptureCommand
	}
	audio, err := r.capture(ctx)
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return ErrNoAudio
	}

	text, err := r.gen.Generate(context.WithoutCancel(ctx), ai.TranscriptionRequest(audioMimeType, audio, r.locale))
	if err != nil {
		return fmt.Errorf("transcribe audio: %w", err)
	}
	emit(Segment{Text: strings.TrimSpace(text), Final: true})
	return nil
}

func (r *CommandRecognizer) capture(ctx context.Context) ([]byte, error) {
	cmd := exec.Command(r.command[0], r.command[1:]...)
	var audio bytes.Buffer
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	r.log.Debug().Strs("command", r.command).Msg("capture started")

	copied := make(chan error, 1)
	go func() {
		_, err := io.Copy(&audio, stdout)
		copied <- err
	}()

	select {
	case <-ctx.Done():
		// recorders flush their output on SIGINT
		_ = cmd.Process.Signal(os.Interrupt)
		<-copied
	case err := <-copied:
		if err != nil {
			r.log.Error().Err(err).Msg("capture read failed")
		}
	}
	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("capture command: %w", err)
	}
	r.log.Debug().Int("bytes", audio.Len()).Msg("capture stopped")
	return audio.Bytes(), nil
}
