package tts

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewUtterance(t *testing.T) {
	u := NewUtterance("Qual é o maior livro?", "", 1.2)

	if u.Locale != "pt-BR" {
		t.Errorf("Locale = %q, want pt-BR", u.Locale)
	}
	if u.ID == "" {
		t.Error("ID is empty")
	}
	if other := NewUtterance("x", "", 1); other.ID == u.ID {
		t.Error("utterance IDs are not unique")
	}
}

func TestESpeakArgs(t *testing.T) {
	tests := []struct {
		name   string
		u      Utterance
		volume float64
		want   []string
	}{
		{
			name:   "default voice",
			u:      Utterance{Text: "Pergunta um", Rate: 1.2},
			volume: 1.0,
			want:   []string{"-v", "pt-br", "-s", "210", "-a", "100", "--", "Pergunta um"},
		},
		{
			name:   "selected voice",
			u:      Utterance{Text: "-1 começa com hífen", Voice: "Portuguese_(Brazil)", Rate: 1},
			volume: 0.5,
			want:   []string{"-v", "Portuguese_(Brazil)", "-s", "175", "-a", "50", "--", "-1 começa com hífen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, espeakArgs(tt.u, tt.volume)); diff != "" {
				t.Errorf("espeakArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseESpeakVoices(t *testing.T) {
	output := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  pt             --/M      Portuguese_(Portugal) roa/pt               (pt-pt 5)
 5  pt-br          --/M      Portuguese_(Brazil) roa/pt-BR
`
	want := []VoiceInfo{
		{Name: "Portuguese_(Portugal)", LanguageCode: "pt", Gender: "M"},
		{Name: "Portuguese_(Brazil)", LanguageCode: "pt-br", Gender: "M"},
	}
	if diff := cmp.Diff(want, parseESpeakVoices(output)); diff != "" {
		t.Errorf("parseESpeakVoices() mismatch (-want +got):\n%s", diff)
	}
}

func TestPortuguese(t *testing.T) {
	voices := []VoiceInfo{
		{Name: "Luciana", LanguageCode: "pt_BR"},
		{Name: "Samantha", LanguageCode: "en_US"},
		{Name: "pt-BR-Wavenet-A", LanguageCode: "pt-BR"},
	}

	got := Portuguese(voices)
	if len(got) != 2 || got[0].Name != "Luciana" || got[1].Name != "pt-BR-Wavenet-A" {
		t.Errorf("Portuguese() = %v", got)
	}
}

func TestSplitIntoChunks(t *testing.T) {
	chunks := splitIntoChunks("ááááá", 2)
	want := []string{"áá", "áá", "á"}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("splitIntoChunks() mismatch (-want +got):\n%s", diff)
	}
}

func TestMockEngineCancel(t *testing.T) {
	m := NewMockEngine(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- m.Speak(ctx, NewUtterance("longa", "", 1))
	}()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Speak() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Speak() did not return after cancel")
	}
}

func TestNewEngineMock(t *testing.T) {
	engine, err := NewEngine(Config{Type: "mock"})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", engine.Name())
	}

	if _, err := NewEngine(Config{Type: "nope"}); err == nil {
		t.Error("NewEngine(nope) error = nil")
	}
}

func TestDetectDisabled(t *testing.T) {
	if engine := Detect(false, Config{Type: "mock"}); engine != nil {
		t.Errorf("Detect(false) = %v, want nil", engine)
	}
	if engine := Detect(true, Config{Type: "nope"}); engine != nil {
		t.Errorf("Detect(unsupported) = %v, want nil", engine)
	}
}

func TestGetAvailableEngines(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/credentials.json")

	engines := GetAvailableEngines()
	for _, want := range []EngineType{EngineTypeMock, EngineTypeESpeak, EngineTypeGoogle} {
		if !slices.Contains(engines, want) {
			t.Errorf("GetAvailableEngines() = %v, missing %s", engines, want)
		}
	}
	if slices.Contains(engines, EngineTypeAuto) {
		t.Error("GetAvailableEngines() lists auto, which is not an engine")
	}
}
