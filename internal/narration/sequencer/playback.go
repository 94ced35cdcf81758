package sequencer

import (
	"context"
	"sync"

	"quizbuzzer/internal/narration/tts"
)

// State is the lifecycle of a single playback.
type State int

const (
	StateIdle State = iota
	StateSpeaking
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateSpeaking:
		return "speaking"
	case StateEnding:
		return "ending"
	default:
		return "idle"
	}
}

// Playback tracks one utterance from dispatch to end.
//
// Started is closed when the engine begins speaking; it is never closed for a
// playback superseded before it started. Done is always closed exactly once.
type Playback struct {
	Utterance tts.Utterance

	cancel  context.CancelFunc
	started chan struct{}
	done    chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

func newPlayback(u tts.Utterance, cancel context.CancelFunc) *Playback {
	return &Playback{
		Utterance: u,
		cancel:    cancel,
		started:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// finishedPlayback is returned when there is nothing to play.
func finishedPlayback(u tts.Utterance, err error) *Playback {
	p := newPlayback(u, func() {})
	p.finish(err)
	return p
}

func (p *Playback) Started() <-chan struct{} { return p.started }

func (p *Playback) Done() <-chan struct{} { return p.done }

func (p *Playback) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err is ErrCancelled for a superseded playback, the engine fault if the
// engine failed, and nil otherwise. It is only meaningful once Done is closed.
func (p *Playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the playback ends. If ctx ends first the playback is
// stopped and ctx.Err() is returned.
func (p *Playback) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		p.cancel()
		<-p.done
		return ctx.Err()
	}
}

func (p *Playback) start() {
	p.mu.Lock()
	p.state = StateSpeaking
	p.mu.Unlock()
	close(p.started)
}

func (p *Playback) ending() {
	p.mu.Lock()
	p.state = StateEnding
	p.mu.Unlock()
}

func (p *Playback) finish(err error) {
	p.mu.Lock()
	p.state = StateIdle
	p.err = err
	p.mu.Unlock()
	close(p.done)
}
