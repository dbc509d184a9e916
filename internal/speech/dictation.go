// Package speech captures dictation: a recognizer produces transcript
// segments and a Dictation tracks one capture session per target.
package speech

import (
	"errors"
	"strings"
	"sync"
)

// ErrBusy is returned by Begin while a session is listening or processing.
var ErrBusy = errors.New("dictation already in progress")

// State is the dictation lifecycle.
type State int

const (
	Idle State = iota
	Listening
	Processing
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	default:
		return "idle"
	}
}

// Segment is one recognizer result. Interim results have Final unset and
// are only useful for live display.
type Segment struct {
	Text  string
	Final bool
}

// Dictation serializes capture sessions for one target. It is safe to Feed
// from the recognizer goroutine while the UI reads State.
type Dictation struct {
	mu       sync.Mutex
	state    State
	segments []string
	interim  string
}

// Begin starts listening.
func (d *Dictation) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Idle {
		return ErrBusy
	}
	d.state = Listening
	d.segments = d.segments[:0]
	d.interim = ""
	return nil
}

// Feed records a segment. Only final segments reach the transcript.
func (d *Dictation) Feed(seg Segment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Listening {
		return
	}
	if !seg.Final {
		d.interim = seg.Text
		return
	}
	d.interim = ""
	if t := strings.TrimSpace(seg.Text); t != "" {
		d.segments = append(d.segments, t)
	}
}

// Interim returns the latest non-final text.
func (d *Dictation) Interim() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interim
}

// End stops listening. An empty transcript returns to Idle and proceed is
// false; otherwise the dictation moves to Processing until Done or Fail.
func (d *Dictation) End() (transcript string, proceed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Listening {
		return "", false
	}
	transcript = strings.Join(d.segments, " ")
	d.segments = d.segments[:0]
	d.interim = ""
	if transcript == "" {
		d.state = Idle
		return "", false
	}
	d.state = Processing
	return transcript, true
}

// Done finishes processing.
func (d *Dictation) Done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Idle
}

// Fail aborts from any state.
func (d *Dictation) Fail() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Idle
	d.segments = d.segments[:0]
	d.interim = ""
}

// State returns the current state.
func (d *Dictation) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
