package show

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"quizbuzzer/internal/config"
	"quizbuzzer/internal/device"
	"quizbuzzer/internal/device/transport"
	"quizbuzzer/internal/domain/script"
	"quizbuzzer/internal/narration/sequencer"
	"quizbuzzer/internal/narration/tts"
)

type fakeTransport struct {
	kind       transport.Kind
	connectErr error

	mu   sync.Mutex
	open bool
	sent []device.Command
}

func (f *fakeTransport) Kind() transport.Kind { return f.kind }

func (f *fakeTransport) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(_ context.Context, cmd device.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return transport.ErrNotConnected
	}
	f.open = false
	return nil
}

func (f *fakeTransport) Sent() []device.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

type fixture struct {
	show   *Show
	engine *tts.MockEngine
	radio  *fakeTransport
	wired  *fakeTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine := tts.NewMockEngine(5 * time.Millisecond)
	prefs := config.NewPreferences(viper.New())
	narrator := sequencer.New(engine, prefs, sequencer.WithPause(time.Millisecond))

	radio := &fakeTransport{kind: transport.KindRadio}
	wired := &fakeTransport{kind: transport.KindWired}
	devices := transport.NewManager(radio, wired)

	s := New(narrator, devices, prefs, config.Config{})
	t.Cleanup(s.Shutdown)

	return &fixture{show: s, engine: engine, radio: radio, wired: wired}
}

// spokenTexts waits until n utterances reached the engine.
func (f *fixture) spokenTexts(t *testing.T, n int) []string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		spoken := f.engine.Spoken()
		if len(spoken) >= n {
			texts := make([]string, 0, len(spoken))
			for _, u := range spoken {
				texts = append(texts, u.Text)
			}
			return texts
		}
		select {
		case <-deadline:
			t.Fatalf("spoke %d utterances, want %d", len(spoken), n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestConnectAutoPrefersWired(t *testing.T) {
	f := newFixture(t)

	if !f.show.Connect("auto") {
		t.Fatal("Connect(auto) = false")
	}
	if got := f.show.devices.ConnectionType(); got != transport.KindWired {
		t.Errorf("ConnectionType() = %v, want wired", got)
	}
	if f.radio.IsOpen() {
		t.Error("radio connected although wired succeeded")
	}
}

func TestConnectAutoFallsBackToRadio(t *testing.T) {
	f := newFixture(t)
	f.wired.connectErr = errors.New("no serial port available")

	if !f.show.Connect("") {
		t.Fatal("Connect() = false")
	}
	if got := f.show.devices.ConnectionType(); got != transport.KindRadio {
		t.Errorf("ConnectionType() = %v, want radio", got)
	}
}

func TestConnectUnknownTransport(t *testing.T) {
	f := newFixture(t)

	if f.show.Connect("carrier-pigeon") {
		t.Error("Connect() = true for unknown transport")
	}
}

func TestHandleCorrectSendsPositive(t *testing.T) {
	f := newFixture(t)
	f.show.Connect("wired")

	if !f.show.handle("c") {
		t.Fatal("handle() ended the console")
	}

	if diff := cmp.Diff([]device.Command{device.CommandPositive}, f.wired.Sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	texts := f.spokenTexts(t, 1)
	if !slices.Contains(rightAnswerPhrases, texts[0]) {
		t.Errorf("spoke %q, want a right-answer phrase", texts[0])
	}
}

func TestHandleWrongSendsNegative(t *testing.T) {
	f := newFixture(t)
	f.show.Connect("radio")

	f.show.handle("2")

	if diff := cmp.Diff([]device.Command{device.CommandNegative}, f.radio.Sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	texts := f.spokenTexts(t, 1)
	if !slices.Contains(wrongAnswerPhrases, texts[0]) {
		t.Errorf("spoke %q, want a wrong-answer phrase", texts[0])
	}
}

func TestHandleNextReadsScriptInOrder(t *testing.T) {
	f := newFixture(t)
	f.show.Connect("wired")
	f.show.scripts = []script.Script{{
		ID:       "q1",
		Question: "Quem construiu a arca?",
		Options:  []string{"Noé", "Moisés"},
	}}

	f.show.handle("n")

	if diff := cmp.Diff([]device.Command{device.CommandAdvance}, f.wired.Sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	want := []string{"Quem construiu a arca?", "Opção 1: Noé", "Opção 2: Moisés"}
	if diff := cmp.Diff(want, f.spokenTexts(t, 3)); diff != "" {
		t.Errorf("narration mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleWithoutDeviceOnlyNarrates(t *testing.T) {
	f := newFixture(t)

	f.show.handle("say olá")

	if len(f.wired.Sent())+len(f.radio.Sent()) != 0 {
		t.Error("commands sent without a connection")
	}
	if diff := cmp.Diff([]string{"olá"}, f.spokenTexts(t, 1)); diff != "" {
		t.Errorf("narration mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleQuit(t *testing.T) {
	f := newFixture(t)

	if f.show.handle("q") {
		t.Error("handle(q) = true, want console to end")
	}
	if !f.show.handle("") {
		t.Error("handle(\"\") = false")
	}
}

func TestHandleWrongNamesCorrectAnswer(t *testing.T) {
	f := newFixture(t)
	f.show.scripts = []script.Script{{
		ID:       "q1",
		Question: "Quem construiu a arca?",
		Options:  []string{"Moisés", "Noé"},
		Answer:   2,
	}}

	f.show.handle("n")
	f.spokenTexts(t, 3)
	f.show.handle("w")

	texts := f.spokenTexts(t, 4)
	if last := texts[3]; !strings.HasSuffix(last, " A resposta correta é Noé") {
		t.Errorf("spoke %q, want the correct answer named", last)
	}
}

func TestHandleScore(t *testing.T) {
	f := newFixture(t)
	f.show.scripts = []script.Script{{ID: "q1", Fragments: []string{"pergunta"}}}

	f.show.handle("n")
	f.spokenTexts(t, 1)
	f.show.handle("c")
	f.spokenTexts(t, 2)
	f.show.handle("score")

	texts := f.spokenTexts(t, 3)
	if diff := cmp.Diff("A pontuação foi 1 de 1", texts[2]); diff != "" {
		t.Errorf("score line mismatch (-want +got):\n%s", diff)
	}
}
