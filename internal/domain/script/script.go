package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// UnsetPause marks a script that leaves the gap to the narrator's default.
const UnsetPause time.Duration = -1

var ErrEmpty = errors.New("script has nothing to say")

// Script is a narration job stored on disk. Either Fragments is set, or
// Question with its Options, which are read as "Opção N: ..." after it.
//
// Pause accepts a duration string ("500ms", "1s") or a bare number of
// milliseconds. Zero means no gap.
type Script struct {
	ID        string        `mapstructure:"id"`
	Title     string        `mapstructure:"title"`
	Question  string        `mapstructure:"question"`
	Options   []string      `mapstructure:"options"`
	Answer    int           `mapstructure:"answer"` // 1-based option number, 0 when not given
	Fragments []string      `mapstructure:"fragments"`
	Pause     time.Duration `mapstructure:"pause"`
}

// Texts returns the fragments to speak, in order.
func (s Script) Texts() []string {
	if len(s.Fragments) > 0 {
		return s.Fragments
	}
	if s.Question == "" {
		return nil
	}

	texts := make([]string, 0, len(s.Options)+1)
	texts = append(texts, s.Question)
	for i, opt := range s.Options {
		texts = append(texts, fmt.Sprintf("Opção %d: %s", i+1, opt))
	}
	return texts
}

// CorrectAnswer returns the option named by Answer.
func (s Script) CorrectAnswer() (string, bool) {
	if s.Answer < 1 || s.Answer > len(s.Options) {
		return "", false
	}
	return s.Options[s.Answer-1], true
}

// Load reads a script from a yaml, json or toml file. The ID defaults to the
// file name without extension.
func Load(path string) (Script, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Script{}, fmt.Errorf("failed to read script %s: %w", path, err)
	}

	s := Script{Pause: UnsetPause}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		millisecondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return Script{}, fmt.Errorf("failed to parse script %s: %w", path, err)
	}

	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.Title == "" {
		s.Title = s.ID
	}
	if len(s.Texts()) == 0 {
		return Script{}, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return s, nil
}

// LoadDir loads every script file in dir, sorted by ID. Files that fail to
// load are returned in skipped rather than aborting the listing.
func LoadDir(dir string) (scripts []Script, skipped map[string]error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read script directory: %w", err)
	}

	skipped = make(map[string]error)
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := Load(path)
		if err != nil {
			skipped[path] = err
			continue
		}
		scripts = append(scripts, s)
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].ID < scripts[j].ID })
	return scripts, skipped, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook reads bare numbers as milliseconds, the unit scripts use.
func millisecondsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch n := data.(type) {
	case int:
		return time.Duration(n) * time.Millisecond, nil
	case int64:
		return time.Duration(n) * time.Millisecond, nil
	case uint64:
		return time.Duration(n) * time.Millisecond, nil
	case float64:
		return time.Duration(n * float64(time.Millisecond)), nil
	}
	return data, nil
}
