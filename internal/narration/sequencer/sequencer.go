// Package sequencer orders narration on top of a one-utterance-at-a-time
// speech engine.
//
// Every new Speak, Play or SpeakSequence call supersedes whatever is playing:
// the previous utterance is cancelled, and a running sequence is truncated so
// none of its remaining fragments are spoken. A new utterance never reaches
// the engine before the superseded one has stopped.
package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"quizbuzzer/internal/narration/tts"
)

const DefaultPause = 300 * time.Millisecond

var ErrCancelled = errors.New("narration cancelled")

// Preferences supplies the voice and rate used for new utterances.
type Preferences interface {
	Voice() string
	Rate() float64
	SetVoice(voice string) error
	SetRate(rate float64) error
}

// Hooks observe playback transitions. OnEnd only fires for utterances that
// finished on their own.
type Hooks struct {
	OnStart func(tts.Utterance)
	OnEnd   func(tts.Utterance)
}

type Option func(*Sequencer)

func WithHooks(h Hooks) Option {
	return func(s *Sequencer) { s.hooks = h }
}

// WithPause sets the default gap between sequence fragments.
func WithPause(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.pause = d
		}
	}
}

type Sequencer struct {
	engine tts.Engine
	prefs  Preferences
	pause  time.Duration
	hooks  Hooks

	mu      sync.Mutex
	current *Playback
	run     *run
}

// run is one SpeakSequence call.
type run struct {
	stopped chan struct{}
	once    sync.Once
}

func (r *run) stop() {
	r.once.Do(func() { close(r.stopped) })
}

// New returns a Sequencer. A nil engine means speech is unsupported and every
// operation is a no-op.
func New(engine tts.Engine, prefs Preferences, opts ...Option) *Sequencer {
	s := &Sequencer{
		engine: engine,
		prefs:  prefs,
		pause:  DefaultPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Supported reports whether a speech engine is available.
func (s *Sequencer) Supported() bool {
	return s.engine != nil
}

// Speaking is true from dispatch until end of an utterance, and for the
// whole of a sequence.
func (s *Sequencer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil || s.run != nil
}

// Speak supersedes any narration in flight and speaks text. With wait it
// blocks until playback ends and returns ErrCancelled if it was superseded.
func (s *Sequencer) Speak(ctx context.Context, text string, wait bool) error {
	if s.engine == nil {
		return nil
	}

	p := s.Play(text)
	if !wait {
		return nil
	}
	return p.Wait(ctx)
}

// Play dispatches text and returns immediately.
func (s *Sequencer) Play(text string) *Playback {
	return s.play(text, nil)
}

// SpeakSequence speaks texts strictly in order with pause between fragments
// and returns once the last one has ended. A zero pause plays the fragments
// back to back; a negative pause uses the configured default.
func (s *Sequencer) SpeakSequence(ctx context.Context, texts []string, pause time.Duration) error {
	if s.engine == nil {
		return nil
	}
	if pause < 0 {
		pause = s.pause
	}

	r := &run{stopped: make(chan struct{})}

	s.mu.Lock()
	if s.run != nil {
		s.run.stop()
	}
	if s.current != nil {
		s.current.cancel()
	}
	s.run = r
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.run == r {
			s.run = nil
		}
		s.mu.Unlock()
	}()

	logrus.WithField("fragments", len(texts)).Debug("narration sequence started")

	for i, text := range texts {
		p := s.play(text, r)
		if err := p.Wait(ctx); err != nil {
			if errors.Is(err, ErrCancelled) || ctx.Err() != nil {
				logrus.WithField("spoken", i).Debug("narration sequence truncated")
				return err
			}
			// engine faults skip the fragment, already logged
		}

		if i == len(texts)-1 {
			break
		}

		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-r.stopped:
			timer.Stop()
			logrus.WithField("spoken", i+1).Debug("narration sequence truncated")
			return ErrCancelled
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return nil
}

// Stop cancels the utterance in flight and any running sequence.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.cancel()
	}
	if s.run != nil {
		s.run.stop()
		s.run = nil
	}
}

// SetVoice changes the voice of subsequent utterances.
func (s *Sequencer) SetVoice(voice string) error {
	if err := s.prefs.SetVoice(voice); err != nil {
		return err
	}
	logrus.WithField("voice", voice).Info("narration voice updated")
	return nil
}

// SetRate changes the rate of subsequent utterances.
func (s *Sequencer) SetRate(rate float64) error {
	if err := s.prefs.SetRate(rate); err != nil {
		return err
	}
	logrus.WithField("rate", rate).Info("narration rate updated")
	return nil
}

// Voices lists the engine's Portuguese voices.
func (s *Sequencer) Voices(ctx context.Context) ([]tts.VoiceInfo, error) {
	if s.engine == nil {
		return nil, nil
	}
	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return nil, err
	}
	return tts.Portuguese(voices), nil
}

func (s *Sequencer) play(text string, owner *run) *Playback {
	u := tts.NewUtterance(text, s.prefs.Voice(), s.prefs.Rate())
	if s.engine == nil {
		return finishedPlayback(u, nil)
	}

	s.mu.Lock()
	if owner != nil && s.run != owner {
		// the owning sequence was superseded between fragments
		s.mu.Unlock()
		return finishedPlayback(u, ErrCancelled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := newPlayback(u, cancel)

	prev := s.current
	if prev != nil {
		prev.cancel()
	}
	if s.run != nil && s.run != owner {
		s.run.stop()
		s.run = nil
	}
	s.current = p
	s.mu.Unlock()

	go s.perform(ctx, p, prev)
	return p
}

func (s *Sequencer) perform(ctx context.Context, p *Playback, prev *Playback) {
	defer p.cancel()

	if prev != nil {
		<-prev.Done()
	}

	log := logrus.WithField("utterance", p.Utterance.ID)

	if ctx.Err() != nil {
		s.release(p)
		p.finish(ErrCancelled)
		return
	}

	p.start()
	if s.hooks.OnStart != nil {
		s.hooks.OnStart(p.Utterance)
	}
	log.WithFields(logrus.Fields{
		"voice": p.Utterance.Voice,
		"rate":  p.Utterance.Rate,
	}).Debug("utterance started")

	err := s.engine.Speak(ctx, p.Utterance)
	p.ending()

	switch {
	case ctx.Err() != nil:
		err = ErrCancelled
		log.Debug("utterance cancelled")
	case err != nil:
		log.WithError(err).Warn("speech engine failed")
	default:
		log.Debug("utterance ended")
		if s.hooks.OnEnd != nil {
			s.hooks.OnEnd(p.Utterance)
		}
	}

	s.release(p)
	p.finish(err)
}

func (s *Sequencer) release(p *Playback) {
	s.mu.Lock()
	if s.current == p {
		s.current = nil
	}
	s.mu.Unlock()
}
