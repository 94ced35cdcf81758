//go:build windows

package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// SAPIEngine implements Windows SAPI TTS through System.Speech
type SAPIEngine struct {
	config Config
}

const sapiSpeakScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.Rate = [int]$env:QUIZBUZZER_TTS_RATE;
$synth.Volume = [int]$env:QUIZBUZZER_TTS_VOLUME;
if ($env:QUIZBUZZER_TTS_VOICE) { $synth.SelectVoice($env:QUIZBUZZER_TTS_VOICE) }
else { $synth.SelectVoiceByHints([System.Speech.Synthesis.VoiceGender]::NotSet, [System.Speech.Synthesis.VoiceAge]::NotSet, 0, [System.Globalization.CultureInfo]::new('pt-BR')) }
$synth.Speak($env:QUIZBUZZER_TTS_TEXT)`

const sapiVoicesScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture.Name + '|' + $_.VoiceInfo.Gender }`

// newSAPIEngine creates a new Windows SAPI TTS engine
func newSAPIEngine(config Config) (*SAPIEngine, error) {
	if _, err := exec.LookPath("powershell"); err != nil {
		return nil, fmt.Errorf("powershell not found: %w", ErrUnsupported)
	}
	return &SAPIEngine{config: config}, nil
}

func (s *SAPIEngine) Name() string {
	return EngineTypeSAPI.String()
}

func (s *SAPIEngine) Speak(ctx context.Context, u Utterance) error {
	rate := int(u.Rate*10) - 10 // SAPI range is -10 to 10
	if rate > 10 {
		rate = 10
	}

	// text travels through the environment so it is never parsed as script
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", sapiSpeakScript)
	cmd.Env = append(os.Environ(),
		"QUIZBUZZER_TTS_TEXT="+u.Text,
		"QUIZBUZZER_TTS_VOICE="+u.Voice,
		fmt.Sprintf("QUIZBUZZER_TTS_RATE=%d", rate),
		fmt.Sprintf("QUIZBUZZER_TTS_VOLUME=%d", int(s.config.Volume*100)),
	)

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("SAPI failed: %w", err)
	}
	return nil
}

func (s *SAPIEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	output, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", sapiVoicesScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list SAPI voices: %w", err)
	}

	var voices []VoiceInfo
	for _, line := range strings.Split(string(output), "\n") {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) != 3 {
			continue
		}
		voices = append(voices, VoiceInfo{Name: parts[0], LanguageCode: parts[1], Gender: parts[2]})
	}
	return voices, nil
}
