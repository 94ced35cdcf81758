//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SayEngine speaks through the macOS built-in 'say' command
type SayEngine struct {
	config Config
}

// newSayEngine creates a new macOS TTS engine
func newSayEngine(config Config) (*SayEngine, error) {
	if _, err := exec.LookPath("say"); err != nil {
		return nil, fmt.Errorf("say not found: %w", ErrUnsupported)
	}
	return &SayEngine{config: config}, nil
}

func (s *SayEngine) Name() string {
	return EngineTypeSay.String()
}

func (s *SayEngine) Speak(ctx context.Context, u Utterance) error {
	args := []string{}

	// without an explicit voice say falls back to the system language, so
	// pick the first pt_BR voice instead
	voice := u.Voice
	if voice == "" {
		voice = s.defaultVoice(ctx)
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}

	// words per minute, default is ~175
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*u.Rate))
	args = append(args, "--", u.Text)

	err := exec.CommandContext(ctx, "say", args...).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("say failed: %w", err)
	}
	return nil
}

func (s *SayEngine) defaultVoice(ctx context.Context) string {
	voices, err := s.Voices(ctx)
	if err != nil {
		return ""
	}
	for _, v := range voices {
		if strings.EqualFold(v.LanguageCode, "pt_BR") {
			return v.Name
		}
	}
	return ""
}

func (s *SayEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	output, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list say voices: %w", err)
	}
	return parseSayVoices(string(output)), nil
}

// parseSayVoices reads lines of the form "Luciana   pt_BR    # Olá, meu nome é Luciana."
func parseSayVoices(output string) []VoiceInfo {
	var voices []VoiceInfo
	for _, line := range strings.Split(output, "\n") {
		head, _, _ := strings.Cut(line, "#")
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}
		// voice names may contain spaces, the locale is always the last field
		voices = append(voices, VoiceInfo{
			Name:         strings.Join(fields[:len(fields)-1], " "),
			LanguageCode: fields[len(fields)-1],
		})
	}
	return voices
}
