package tts

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeSAPI   EngineType = "sapi" // Windows only
	EngineTypeSay    EngineType = "say"  // macOS only
	EngineTypeGoogle EngineType = "google"
	EngineTypeAuto   EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a new TTS engine based on the provided config
func NewEngine(config Config) (Engine, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = getBestEngineForPlatform().String()
	}
	if config.Volume <= 0 {
		config.Volume = 1.0
	}

	switch config.Type {
	case EngineTypeMock.String():
		return NewMockEngine(0), nil

	case EngineTypeGoogle.String():
		return newGoogleEngine(config)

	case EngineTypeESpeak.String():
		return newESpeakEngine(config)

	case EngineTypeSAPI.String():
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows: %w", ErrUnsupported)
		}
		return newSAPIEngine(config)

	case EngineTypeSay.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say engine only supports macOS: %w", ErrUnsupported)
		}
		return newSayEngine(config)

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// Detect runs the capability check once at startup. A nil engine means
// narration is unavailable and callers degrade to silent no-ops.
func Detect(enabled bool, config Config) Engine {
	if !enabled {
		logrus.Info("speech disabled by configuration")
		return nil
	}

	engine, err := NewEngine(config)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"engine":    config.Type,
			"available": GetAvailableEngines(),
		}).Warn("speech synthesis unavailable, narration disabled")
		return nil
	}

	logrus.WithField("engine", engine.Name()).Debug("speech engine ready")
	return engine
}

// getBestEngineForPlatform returns the recommended engine for the current platform
func getBestEngineForPlatform() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogle
	}

	switch runtime.GOOS {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// GetAvailableEngines returns engines available on the current platform
func GetAvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak}

	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogle)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeSay)
	}

	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
