package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var ErrInvalidRate = errors.New("speech rate must be between 0.1 and 10")

// Preferences is the voice/rate store consumed by the narration sequencer.
// Values live under selectedVoice and speechSpeed in the config file.
//
// The viper instance is only touched under mu; readers get the cached values.
type Preferences struct {
	mu    sync.RWMutex
	v     *viper.Viper
	voice string
	rate  float64
}

func NewPreferences(v *viper.Viper) *Preferences {
	p := &Preferences{v: v}
	p.refresh()
	return p
}

// Voice returns the stored voice identifier, or "" for the engine default.
func (p *Preferences) Voice() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voice
}

// Rate returns the stored speech rate, falling back to DefaultSpeechRate.
func (p *Preferences) Rate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rate
}

func (p *Preferences) SetVoice(voice string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.voice = voice
	return p.persist()
}

func (p *Preferences) SetRate(rate float64) error {
	if err := validRate(rate); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = rate
	return p.persist()
}

// Reload re-reads the config file. On a read error the previous values stay.
func (p *Preferences) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload preferences: %w", err)
	}
	p.refresh()
	return nil
}

// Watch reloads the store whenever the config file changes on disk and calls
// onChange afterwards. It stops when ctx ends.
func (p *Preferences) Watch(ctx context.Context, onChange func(voice string, rate float64)) error {
	p.mu.RLock()
	file := p.v.ConfigFileUsed()
	p.mu.RUnlock()
	if file == "" {
		return errors.New("no config file to watch")
	}
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// watch the directory so editors that replace the file are seen too
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(file), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Warn("config watcher error")
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != file || !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create)) {
					continue
				}
				log := logrus.WithField("file", e.Name)
				if err := p.Reload(); err != nil {
					log.WithError(err).Warn("keeping previous preferences")
					continue
				}
				log.Info("config changed, reloaded preferences")
				if onChange != nil {
					onChange(p.Voice(), p.Rate())
				}
			}
		}
	}()
	return nil
}

// refresh copies the stored values into the cache. Caller holds mu.
func (p *Preferences) refresh() {
	p.voice = p.v.GetString(KeySelectedVoice)

	p.rate = DefaultSpeechRate
	if !p.v.IsSet(KeySpeechSpeed) {
		return
	}
	rate := p.v.GetFloat64(KeySpeechSpeed)
	if validRate(rate) != nil {
		logrus.WithField("rate", p.v.Get(KeySpeechSpeed)).Warn("ignoring invalid stored speech rate")
		return
	}
	p.rate = rate
}

// persist writes the cached values into the config file through a scratch
// viper, so the shared instance never carries overrides that would mask a
// later reload. Caller holds mu.
func (p *Preferences) persist() error {
	file := p.v.ConfigFileUsed()
	if file == "" {
		logrus.Debug("no config file configured, preferences kept in memory")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	w := viper.New()
	w.SetConfigFile(file)
	if err := w.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	w.Set(KeySelectedVoice, p.voice)
	w.Set(KeySpeechSpeed, p.rate)

	if err := w.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save preferences to %s: %w", file, err)
	}
	return nil
}

func validRate(rate float64) error {
	if rate < 0.1 || rate > 10 {
		return ErrInvalidRate
	}
	return nil
}
