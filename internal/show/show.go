package show

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizbuzzer/internal/cli/scheme/colours"
	"quizbuzzer/internal/config"
	"quizbuzzer/internal/device"
	"quizbuzzer/internal/device/transport"
	"quizbuzzer/internal/device/wired"
	"quizbuzzer/internal/domain/script"
	"quizbuzzer/internal/narration/sequencer"
	"quizbuzzer/internal/narration/tts"
)

var (
	rightAnswerPhrases = []string{
		"Correto!",
		"Parabéns!",
		"Muito bem!",
		"Excelente!",
		"Você acertou em cheio!",
	}
	wrongAnswerPhrases = []string{
		"Incorreto! Continue estudando!",
		"Incorreto! Não desista!",
		"Boa tentativa!",
		"Foi por pouco!",
	}
)

// Show is the quiz host application. It owns the single narrator and device
// manager and hands them to every command.
type Show struct {
	narrator *sequencer.Sequencer
	devices  *transport.Manager
	prefs    *config.Preferences
	cfg      config.Config

	in io.Reader

	scripts []script.Script
	next    int
	current *script.Script
	asked   int
	score   int

	ctx    context.Context
	Cancel context.CancelFunc
}

func New(narrator *sequencer.Sequencer, devices *transport.Manager, prefs *config.Preferences, cfg config.Config) *Show {
	ctx, cancel := context.WithCancel(context.Background())
	return &Show{
		narrator: narrator,
		devices:  devices,
		prefs:    prefs,
		cfg:      cfg,
		in:       os.Stdin,
		ctx:      ctx,
		Cancel:   cancel,
	}
}

// Shutdown stops narration and releases the device links.
func (s *Show) Shutdown() {
	s.Cancel()
	s.narrator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.devices.Close(ctx)
}

func (s *Show) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🎤 Welcome to QuizBuzzer! 🎤")
	fmt.Println()
	colours.Info.Println("📋 Available commands:")
	fmt.Println("  • quizbuzzer host     - Run the show from the console")
	fmt.Println("  • quizbuzzer say      - Speak a line")
	fmt.Println("  • quizbuzzer narrate  - Speak a script file")
	fmt.Println("  • quizbuzzer send     - Send one command to the device")
	fmt.Println("  • quizbuzzer voices   - List Portuguese voices")
	fmt.Println("  • quizbuzzer settings - Configure voice and speed")
	fmt.Println("  • quizbuzzer ports    - List serial ports")
	fmt.Println()
	if !s.narrator.Supported() {
		colours.Warning.Println("🔇 No speech engine available, narration is disabled")
	}
}

func (s *Show) Say(cmd *cobra.Command, args []string) {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		colours.Error.Println("❌ Nothing to say!")
		return
	}

	if err := s.narrator.Speak(s.ctx, text, true); err != nil {
		colours.Warning.Printf("⏹️  %v\n", err)
	}
}

func (s *Show) Narrate(cmd *cobra.Command, args []string) {
	sc, err := script.Load(args[0])
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	pause := sc.Pause
	if cmd.Flags().Changed("pause") {
		pause, _ = cmd.Flags().GetDuration("pause")
	}

	s.displayScript(sc)
	if err := s.narrator.SpeakSequence(s.ctx, sc.Texts(), pause); err != nil {
		colours.Warning.Printf("⏹️  %v\n", err)
		return
	}
	colours.Success.Println("✅ Done!")
}

func (s *Show) Send(cmd *cobra.Command, args []string) {
	c, err := device.ParseCommand(args[0])
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	via, _ := cmd.Flags().GetString("via")
	if !s.Connect(via) {
		colours.Error.Println("❌ Could not connect to the device")
		return
	}
	defer s.devices.Close(s.ctx)

	if !s.devices.SendCommand(s.ctx, c) {
		colours.Error.Printf("❌ Failed to send %s\n", c)
		return
	}
	colours.Success.Printf("📡 Sent %s over %s\n", c, s.devices.ConnectionType())
}

func (s *Show) Voices(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("🗣️ Available Voices 🗣️")
	fmt.Println()

	if !s.narrator.Supported() {
		colours.Warning.Println("🔇 Speech synthesis is not available")
		return
	}

	voices, err := s.narrator.Voices(s.ctx)
	if err != nil {
		colours.Error.Printf("❌ Failed to list voices: %v\n", err)
		return
	}
	if len(voices) == 0 {
		colours.Warning.Println("🔍 No Portuguese voices found.")
		return
	}

	selected := s.prefs.Voice()
	for i, v := range voices {
		fmt.Printf("  %d. ", i+1)
		colours.Voice.Printf("%s", v.Name)
		fmt.Printf(" (%s", v.LanguageCode)
		if v.Gender != "" {
			fmt.Printf(", %s", v.Gender)
		}
		fmt.Print(")")
		if v.Name == selected {
			colours.Success.Print("  ✓ selected")
		}
		fmt.Println()
	}
}

func (s *Show) ConfigureSettings(cmd *cobra.Command, args []string) {
	if cmd.Flags().Changed("voice") {
		voice, _ := cmd.Flags().GetString("voice")
		if err := s.narrator.SetVoice(voice); err != nil {
			colours.Error.Printf("❌ Failed to save voice: %v\n", err)
			return
		}
	}
	if cmd.Flags().Changed("rate") {
		rate, _ := cmd.Flags().GetFloat64("rate")
		if err := s.narrator.SetRate(rate); err != nil {
			colours.Error.Printf("❌ Failed to save speed: %v\n", err)
			return
		}
	}

	fmt.Println()
	colours.Title.Println("⚙️ Voice Settings ⚙️")
	fmt.Println()

	voice := s.prefs.Voice()
	if voice == "" {
		voice = "engine default"
	}
	fmt.Printf("  • Voice: %s\n", voice)
	fmt.Printf("  • Speed: %.1fx\n", s.prefs.Rate())
	fmt.Printf("  • Engine: %s\n", s.cfg.Speech.Engine)
	fmt.Printf("  • Engines on this host: %s\n", joinEngines(tts.GetAvailableEngines()))
	fmt.Println()
	colours.Info.Println("💡 Change them with --voice and --rate")
}

func (s *Show) Ports(cmd *cobra.Command, args []string) {
	ports, err := wired.Ports()
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}
	if len(ports) == 0 {
		colours.Warning.Println("🔌 No serial ports found")
		return
	}

	for _, p := range ports {
		colours.Device.Printf("  %s", p.Name)
		if p.IsUSB {
			fmt.Printf("  USB %s:%s %s", p.VID, p.PID, p.Product)
		}
		fmt.Println()
	}
}

// Connect opens the transport named by via. An empty or "auto" via tries the
// wired link first and falls back to radio.
func (s *Show) Connect(via string) bool {
	if via == "" || via == "auto" {
		return s.connect(transport.KindWired) || s.connect(transport.KindRadio)
	}

	kind, ok := transport.ParseKind(via)
	if !ok {
		colours.Error.Printf("❌ Unknown connection %q, use wired or radio\n", via)
		return false
	}
	return s.connect(kind)
}

func (s *Show) connect(kind transport.Kind) bool {
	ctx := s.ctx
	if kind == transport.KindRadio {
		colours.Info.Println("📶 Scanning for the device...")
		if s.cfg.Radio.ScanTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.Radio.ScanTimeout)
			defer cancel()
		}
	}
	return s.devices.Connect(ctx, kind)
}

// Host runs the interactive console until q or ctrl-c.
func (s *Show) Host(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		scripts, skipped, err := script.LoadDir(args[0])
		if err != nil {
			colours.Error.Printf("❌ %v\n", err)
			return
		}
		for path, err := range skipped {
			logrus.WithError(err).WithField("file", path).Warn("skipping script")
		}
		s.scripts = scripts
		colours.Success.Printf("📚 Loaded %d scripts\n", len(scripts))
	}

	via, _ := cmd.Flags().GetString("via")
	if s.Connect(via) {
		colours.Success.Printf("🔗 Connected over %s\n", s.devices.ConnectionType())
	} else {
		colours.Warning.Println("⚠️  No device connected, commands will only be narrated")
	}

	err := s.prefs.Watch(s.ctx, func(voice string, rate float64) {
		colours.Info.Printf("\n🔄 Settings reloaded: voice %q, speed %.1fx\n", voice, rate)
	})
	if err != nil {
		logrus.WithError(err).Debug("settings hot reload disabled")
	}

	s.hostHelp()
	s.waitForUserInput()
}

func (s *Show) hostHelp() {
	fmt.Println()
	colours.Prompt.Println("🎮 n/0 next  •  c/1 correct  •  w/2 wrong  •  score  •  say <text>  •  stop  •  q quit")
}

func (s *Show) waitForUserInput() {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("\n> ")
		select {
		case <-s.ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !s.handle(line) {
				return
			}
		}
	}
}

// handle runs one console line and reports whether the console should go on.
func (s *Show) handle(line string) bool {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")

	switch strings.ToLower(verb) {
	case "n", "next", "0":
		s.send(device.CommandAdvance)
		s.readNextScript()
	case "c", "correct", "1":
		s.send(device.CommandPositive)
		s.score++
		s.narrator.Play(pick(rightAnswerPhrases))
	case "w", "wrong", "2":
		s.send(device.CommandNegative)
		s.narrator.Play(s.wrongAnswerLine())
	case "score":
		s.narrator.Play(s.scoreLine())
	case "say":
		if rest == "" {
			colours.Info.Println("ℹ️  Usage: say <text>")
			break
		}
		s.narrator.Play(rest)
	case "stop", "s":
		s.narrator.Stop()
		colours.Warning.Println("⏹️  Stopped")
	case "rate":
		rate, err := strconv.ParseFloat(rest, 64)
		if err == nil {
			err = s.narrator.SetRate(rate)
		}
		if err != nil {
			colours.Error.Printf("❌ %v\n", err)
		}
	case "q", "quit":
		s.narrator.Stop()
		colours.Warning.Println("👋 Até a próxima!")
		return false
	case "":
	default:
		s.hostHelp()
	}
	return true
}

func (s *Show) send(c device.Command) {
	if !s.devices.Connected() {
		logrus.WithField("command", c.String()).Debug("no device, command skipped")
		return
	}
	if !s.devices.SendCommand(s.ctx, c) {
		colours.Error.Printf("❌ Failed to send %s\n", c)
	}
}

func (s *Show) readNextScript() {
	if len(s.scripts) == 0 {
		return
	}
	if s.next >= len(s.scripts) {
		colours.Warning.Println("📭 No more scripts, starting over")
		s.narrator.Play(s.scoreLine())
		s.next, s.asked, s.score = 0, 0, 0
		s.current = nil
		return
	}

	sc := s.scripts[s.next]
	s.next++
	s.asked++
	s.current = &sc
	s.displayScript(sc)

	go func() {
		if err := s.narrator.SpeakSequence(s.ctx, sc.Texts(), sc.Pause); err != nil {
			logrus.WithError(err).WithField("script", sc.ID).Debug("narration ended early")
		}
	}()
}

func (s *Show) displayScript(sc script.Script) {
	fmt.Println()
	colours.Title.Printf("❓ %s\n", sc.Title)
	for _, text := range sc.Texts() {
		colours.Question.Printf("   %s\n", text)
	}
}

func pick(phrases []string) string {
	return phrases[rand.Intn(len(phrases))]
}

func joinEngines(engines []tts.EngineType) string {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.String())
	}
	return strings.Join(names, ", ")
}

func (s *Show) wrongAnswerLine() string {
	line := pick(wrongAnswerPhrases)
	if s.current == nil {
		return line
	}
	if answer, ok := s.current.CorrectAnswer(); ok {
		line += " A resposta correta é " + answer
	}
	return line
}

func (s *Show) scoreLine() string {
	return fmt.Sprintf("A pontuação foi %d de %d", s.score, s.asked)
}
