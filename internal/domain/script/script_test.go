package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFragments(t *testing.T) {
	path := writeFile(t, t.TempDir(), "intro.yaml", `
title: Abertura
pause: 500ms
fragments:
  - Bem-vindos ao quiz
  - Vamos começar
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Script{
		ID:        "intro",
		Title:     "Abertura",
		Fragments: []string{"Bem-vindos ao quiz", "Vamos começar"},
		Pause:     500 * time.Millisecond,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadQuestionJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q1.json",
		`{"id": "q-1", "question": "Quem construiu a arca?", "options": ["Noé", "Moisés"]}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"Quem construiu a arca?", "Opção 1: Noé", "Opção 2: Moisés"}
	if diff := cmp.Diff(want, s.Texts()); diff != "" {
		t.Errorf("Texts() mismatch (-want +got):\n%s", diff)
	}
	if s.Title != "q-1" {
		t.Errorf("Title = %q, want ID fallback", s.Title)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "title: nada\n")

	if _, err := Load(path); !errors.Is(err, ErrEmpty) {
		t.Errorf("Load() error = %v, want ErrEmpty", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil for missing file")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "fragments: [dois]\n")
	writeFile(t, dir, "a.yaml", "fragments: [um]\n")
	writeFile(t, dir, "broken.yaml", "title: vazio\n")
	writeFile(t, dir, "notes.txt", "ignored")

	scripts, skipped, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	var ids []string
	for _, s := range scripts {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if _, ok := skipped[filepath.Join(dir, "broken.yaml")]; !ok || len(skipped) != 1 {
		t.Errorf("skipped = %v, want only broken.yaml", skipped)
	}
}

func TestLoadPause(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    time.Duration
	}{
		{"duration string", "a.yaml", "pause: 1.5s\nfragments: [um]\n", 1500 * time.Millisecond},
		{"bare milliseconds", "b.yaml", "pause: 500\nfragments: [um]\n", 500 * time.Millisecond},
		{"json milliseconds", "c.json", `{"pause": 250, "fragments": ["um"]}`, 250 * time.Millisecond},
		{"explicit zero", "d.yaml", "pause: 0\nfragments: [um]\n", 0},
		{"absent", "e.yaml", "fragments: [um]\n", UnsetPause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(writeFile(t, dir, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if s.Pause != tt.want {
				t.Errorf("Pause = %v, want %v", s.Pause, tt.want)
			}
		})
	}
}

func TestCorrectAnswer(t *testing.T) {
	s := Script{Question: "Quem construiu a arca?", Options: []string{"Moisés", "Noé"}}

	for answer, want := range map[int]string{0: "", 1: "Moisés", 2: "Noé", 3: ""} {
		s.Answer = answer
		got, ok := s.CorrectAnswer()
		if got != want || ok != (want != "") {
			t.Errorf("Answer %d: CorrectAnswer() = %q, %v, want %q", answer, got, ok, want)
		}
	}
}
