package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quizbuzzer/internal/cli/scheme/colours"
	"quizbuzzer/internal/config"
	"quizbuzzer/internal/device/radio"
	"quizbuzzer/internal/device/transport"
	"quizbuzzer/internal/device/wired"
	"quizbuzzer/internal/narration/sequencer"
	"quizbuzzer/internal/narration/tts"
	"quizbuzzer/internal/show"
)

func main() {
	var (
		configFile string
		verbose    bool
		app        *show.Show
	)

	rootCmd := &cobra.Command{
		Use:   "quizbuzzer",
		Short: "🎤 Narrated quiz show host with a buzzer controller",
		Long: `
┌─────────────────────────────────────┐
│  🎤 Welcome to QuizBuzzer! 🔔       │
│  Reads the questions out loud and   │
│  lights up the answer indicators    │
└─────────────────────────────────────┘

QuizBuzzer narrates quiz questions in Portuguese and drives the indicator
board over Bluetooth or a USB serial cable.
		`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := config.Init(v, configFile); err != nil {
				return err
			}
			cfg := config.Load(v)

			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			if verbose {
				level = logrus.DebugLevel
			}
			logrus.SetLevel(level)

			app = newShow(v, cfg)
			handleSignals(app)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.quizbuzzer/quizbuzzer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Host command
	hostCmd := &cobra.Command{
		Use:   "host [script-dir]",
		Short: "🎮 Run the show interactively",
		Long:  "Connect to the device and drive it from the console, narrating scripts from script-dir",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.Host(cmd, args) },
	}

	// Say command
	sayCmd := &cobra.Command{
		Use:   "say <text>",
		Short: "🗣️ Speak a line",
		Args:  cobra.MinimumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.Say(cmd, args) },
	}

	// Narrate command
	narrateCmd := &cobra.Command{
		Use:   "narrate <script>",
		Short: "📜 Speak a script file",
		Long:  "Speak every fragment of a yaml, json or toml script in order",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.Narrate(cmd, args) },
	}

	// Send command
	sendCmd := &cobra.Command{
		Use:   "send <0|1|2|advance|correct|wrong>",
		Short: "📡 Send one command to the device",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.Send(cmd, args) },
	}

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎙️ List available voices",
		Run:   func(cmd *cobra.Command, args []string) { app.Voices(cmd, args) },
	}

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Configure voice settings",
		Long:  "Show or change the narration voice and speed",
		Run:   func(cmd *cobra.Command, args []string) { app.ConfigureSettings(cmd, args) },
	}

	// Ports command
	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "🔌 List serial ports",
		Run:   func(cmd *cobra.Command, args []string) { app.Ports(cmd, args) },
	}

	// Add flags
	for _, c := range []*cobra.Command{hostCmd, sendCmd} {
		c.Flags().String("via", "auto", "Connection to use: auto, wired or radio")
	}
	narrateCmd.Flags().Duration("pause", 0, "Pause between fragments, 0 for none (default from script or config)")
	settingsCmd.Flags().String("voice", "", "Voice name, see the voices command")
	settingsCmd.Flags().Float64("rate", config.DefaultSpeechRate, "Speaking rate, 1 is normal speed")

	rootCmd.AddCommand(hostCmd, sayCmd, narrateCmd, sendCmd, voicesCmd, settingsCmd, portsCmd)

	err := rootCmd.Execute()
	if app != nil {
		app.Shutdown()
	}
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func newShow(v *viper.Viper, cfg config.Config) *show.Show {
	prefs := config.NewPreferences(v)

	engine := tts.Detect(cfg.Speech.Enabled, tts.Config{
		Type:      cfg.Speech.Engine,
		Volume:    cfg.Speech.Volume,
		CachePath: cfg.Speech.CachePath,
	})
	narrator := sequencer.New(engine, prefs, sequencer.WithPause(cfg.Speech.Pause))

	radioLink := radio.New(radio.NewBLEDialer(), radio.Target{
		Service:        cfg.Radio.Service,
		Characteristic: cfg.Radio.Characteristic,
		Name:           cfg.Radio.Name,
	})
	wiredLink := wired.New(cfg.Wired.Port)

	return show.New(narrator, transport.NewManager(radioLink, wiredLink), prefs, cfg)
}

// Setup signal handling for graceful shutdown
func handleSignals(app *show.Show) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Shutdown()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Até a próxima!"))
		os.Exit(0)
	}()
}
