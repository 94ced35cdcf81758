// Package tts wraps the platform speech engines used for narration.
package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Locale is the only narration locale.
const Locale = "pt-BR"

var ErrUnsupported = errors.New("speech synthesis is not supported on this host")

type Config struct {
	Type      string
	Volume    float64
	CachePath string
}

// Utterance is one unit of synthesized speech. Build it with NewUtterance and
// treat it as immutable.
type Utterance struct {
	ID     string
	Text   string
	Voice  string // "" selects the engine default for Locale
	Rate   float64
	Locale string
}

func NewUtterance(text, voice string, rate float64) Utterance {
	return Utterance{
		ID:     uuid.NewString(),
		Text:   text,
		Voice:  voice,
		Rate:   rate,
		Locale: Locale,
	}
}

// Engine speaks one utterance at a time.
type Engine interface {
	Name() string
	// Speak blocks until playback ends. Cancelling ctx stops playback and
	// Speak returns ctx.Err().
	Speak(ctx context.Context, u Utterance) error
	Voices(ctx context.Context) ([]VoiceInfo, error)
}

// VoiceInfo provides detailed information about available voices
type VoiceInfo struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
}

// Portuguese keeps the voices whose language starts with "pt".
func Portuguese(voices []VoiceInfo) []VoiceInfo {
	out := make([]VoiceInfo, 0, len(voices))
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.LanguageCode), "pt") {
			out = append(out, v)
		}
	}
	return out
}
