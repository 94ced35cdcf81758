package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeySelectedVoice = "selectedVoice"
	KeySpeechSpeed   = "speechSpeed"

	DefaultSpeechRate = 1.2
	DefaultPause      = 300 * time.Millisecond

	RadioService        = "0000ffe0-0000-1000-8000-00805f9b34fb"
	RadioCharacteristic = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel string

	Speech SpeechConfig
	Radio  RadioConfig
	Wired  WiredConfig
}

type SpeechConfig struct {
	Enabled   bool
	Engine    string
	Volume    float64
	Pause     time.Duration
	CachePath string
}

type RadioConfig struct {
	Service        string
	Characteristic string
	Name           string
	ScanTimeout    time.Duration
}

type WiredConfig struct {
	Port string
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("speech.enabled", true)
	v.SetDefault("speech.engine", "auto") // Auto-select best engine
	v.SetDefault("speech.volume", 1.0)
	v.SetDefault("speech.pause", DefaultPause)
	v.SetDefault("speech.cache_path", "")

	v.SetDefault("radio.service", RadioService)
	v.SetDefault("radio.characteristic", RadioCharacteristic)
	v.SetDefault("radio.name", "")
	v.SetDefault("radio.scan_timeout", 15*time.Second)

	v.SetDefault("wired.port", "")
}

// Init wires file, env and defaults into v. A missing config file is not an error.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)

	v.SetEnvPrefix("QUIZBUZZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("quizbuzzer")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.quizbuzzer")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// preferences written later land in the per-user directory
			if home, herr := os.UserHomeDir(); herr == nil {
				v.SetConfigFile(filepath.Join(home, ".quizbuzzer", "quizbuzzer.yaml"))
			}
			logrus.Debug("no config file found, using defaults")
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			logrus.WithField("file", file).Debug("config file does not exist yet, using defaults")
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("file", v.ConfigFileUsed()).Debug("loaded config")
	return nil
}

// Load resolves the typed configuration from v.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel: v.GetString("log.level"),
		Speech: SpeechConfig{
			Enabled:   v.GetBool("speech.enabled"),
			Engine:    v.GetString("speech.engine"),
			Volume:    v.GetFloat64("speech.volume"),
			Pause:     v.GetDuration("speech.pause"),
			CachePath: v.GetString("speech.cache_path"),
		},
		Radio: RadioConfig{
			Service:        v.GetString("radio.service"),
			Characteristic: v.GetString("radio.characteristic"),
			Name:           v.GetString("radio.name"),
			ScanTimeout:    v.GetDuration("radio.scan_timeout"),
		},
		Wired: WiredConfig{
			Port: v.GetString("wired.port"),
		},
	}
}
