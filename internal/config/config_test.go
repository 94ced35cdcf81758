package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	got := Load(v)
	want := Config{
		LogLevel: "info",
		Speech: SpeechConfig{
			Enabled: true,
			Engine:  "auto",
			Volume:  1.0,
			Pause:   300 * time.Millisecond,
		},
		Radio: RadioConfig{
			Service:        "0000ffe0-0000-1000-8000-00805f9b34fb",
			Characteristic: "0000ffe1-0000-1000-8000-00805f9b34fb",
			ScanTimeout:    15 * time.Second,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestInitReadsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "quizbuzzer.yaml")
	content := "speech:\n  engine: mock\n  pause: 500ms\nwired:\n  port: /dev/ttyACM0\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := Init(v, file); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg := Load(v)
	if cfg.Speech.Engine != "mock" {
		t.Errorf("engine = %q, want mock", cfg.Speech.Engine)
	}
	if cfg.Speech.Pause != 500*time.Millisecond {
		t.Errorf("pause = %v, want 500ms", cfg.Speech.Pause)
	}
	if cfg.Wired.Port != "/dev/ttyACM0" {
		t.Errorf("port = %q, want /dev/ttyACM0", cfg.Wired.Port)
	}
	if cfg.Radio.ScanTimeout != 15*time.Second {
		t.Errorf("scan timeout = %v, want default", cfg.Radio.ScanTimeout)
	}
}

func TestInitMissingExplicitFile(t *testing.T) {
	v := viper.New()
	if err := Init(v, filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("Init() error = %v, want nil for a missing file", err)
	}
	if got := Load(v).Speech.Engine; got != "auto" {
		t.Errorf("engine = %q, want auto", got)
	}
}
