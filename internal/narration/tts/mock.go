package tts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// MockEngine prints instead of speaking. Playback time is simulated.
type MockEngine struct {
	duration time.Duration

	mu     sync.Mutex
	spoken []Utterance
}

// NewMockEngine returns a mock whose utterances last d. A zero d estimates
// the time from the word count, like a reader at 150 words per minute.
func NewMockEngine(d time.Duration) *MockEngine {
	return &MockEngine{duration: d}
}

func (m *MockEngine) Name() string {
	return EngineTypeMock.String()
}

func (m *MockEngine) Speak(ctx context.Context, u Utterance) error {
	m.mu.Lock()
	m.spoken = append(m.spoken, u)
	m.mu.Unlock()

	d := m.duration
	if d == 0 {
		rate := u.Rate
		if rate <= 0 {
			rate = 1
		}
		words := len(strings.Fields(u.Text))
		d = time.Duration(float64(words) / 150.0 / rate * float64(time.Minute))
	}

	color.Yellow("🔊 %s", u.Text)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spoken returns every utterance passed to Speak, in call order.
func (m *MockEngine) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Utterance(nil), m.spoken...)
}

func (m *MockEngine) Voices(context.Context) ([]VoiceInfo, error) {
	return []VoiceInfo{{Name: "mock-voice", LanguageCode: Locale}}, nil
}
