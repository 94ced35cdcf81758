// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// espeakVoice is the eSpeak identifier for Brazilian Portuguese.
const espeakVoice = "pt-br"

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	path   string
	config Config
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakEngine{
		path:   espeakPath,
		config: config,
	}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH: %w", ErrUnsupported)
}

func (e *ESpeakEngine) Name() string {
	return EngineTypeESpeak.String()
}

func (e *ESpeakEngine) Speak(ctx context.Context, u Utterance) error {
	// the process is killed when ctx is cancelled
	cmd := exec.CommandContext(ctx, e.path, espeakArgs(u, e.config.Volume)...)
	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("eSpeak failed: %w", err)
	}
	return nil
}

func espeakArgs(u Utterance, volume float64) []string {
	voice := u.Voice
	if voice == "" || voice == "default" {
		voice = espeakVoice
	}

	return []string{
		"-v", voice,
		// words per minute, 175 is eSpeak's normal rate
		"-s", strconv.Itoa(int(math.Round(175 * u.Rate))),
		// amplitude 0-200, default is 100
		"-a", strconv.Itoa(int(math.Round(100 * volume))),
		"--", u.Text,
	}
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices=pt").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list eSpeak voices: %w", err)
	}

	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []VoiceInfo {
	lines := strings.Split(output, "\n")
	voices := make([]VoiceInfo, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		gender := fields[2]
		if idx := strings.LastIndex(gender, "/"); idx >= 0 {
			gender = gender[idx+1:]
		}

		voices = append(voices, VoiceInfo{
			Name:         fields[3],
			LanguageCode: fields[1],
			Gender:       gender,
		})
	}

	return voices
}
