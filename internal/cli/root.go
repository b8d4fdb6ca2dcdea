// ABOUTME: Root cobra command and shared CLI state
// ABOUTME: Loads configuration, applies flag overrides and sets up logging
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mindscribe/mindscribe-go/internal/config"
	"github.com/mindscribe/mindscribe-go/internal/logging"
	"github.com/mindscribe/mindscribe-go/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// annotationTUI marks commands that draw a terminal UI
const annotationTUI = "mindscribe/tui"

// app carries flags, configuration and the logger between commands
type app struct {
	configPath string
	logLevel   string
	logJSON    bool
	logFile    string
	backend    string
	address    string
	model      string
	codec      string
	discover   bool

	// tui is set when the command takes over the terminal
	tui bool

	cfg     *config.Config
	logger  zerolog.Logger
	logSink io.Closer

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the mindscribe command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "mindscribe",
		Short: "Turn spoken video into a topic mind map",
		Long: `mindscribe transcribes the audio track of a video with a speech
recognition engine, sends the transcript to a topic-analysis service and
draws the resulting topics as an interactive mind map.

COMMON WORKFLOWS:
  Full pipeline:        mindscribe run talk.mp4
  Transcript only:      mindscribe transcribe talk.mp4 -o talk.txt
  Render saved topics:  mindscribe tree segments.json
  Find ASR workers:     mindscribe discover
  Serve an ASR worker:  mindscribe worker --upstream http://localhost:8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logSink != nil {
				a.logSink.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.mindscribe/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&a.logJSON, "log-json", false, "Log JSON lines instead of console output")
	flags.StringVar(&a.logFile, "log-file", "", "Log file path (empty string disables the file)")
	flags.StringVar(&a.backend, "asr-backend", "", "ASR backend: ws or http")
	flags.StringVar(&a.address, "asr-address", "", "ASR worker host:port or HTTP base URL")
	flags.StringVar(&a.model, "model", "", "ASR model id")
	flags.StringVar(&a.codec, "codec", "", "Chunk payload codec for ws workers: pcm or opus")
	flags.BoolVar(&a.discover, "discover", false, "Find an ASR worker with mDNS")

	root.AddCommand(
		a.newRunCommand(),
		a.newTranscribeCommand(),
		a.newTreeCommand(),
		a.newDiscoverCommand(),
		a.newWorkerCommand(),
		a.newPreviewCommand(),
		a.newVersionCommand(),
	)
	return root
}

// setup loads configuration, overlays changed flags and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}
	if flags.Changed("log-file") {
		cfg.Log.File = a.logFile
	}
	if flags.Changed("asr-backend") {
		cfg.ASR.Backend = a.backend
	}
	if flags.Changed("asr-address") {
		cfg.ASR.Address = a.address
	}
	if flags.Changed("model") {
		cfg.ASR.Model = a.model
	}
	if flags.Changed("codec") {
		cfg.ASR.Codec = a.codec
	}
	if flags.Changed("discover") {
		cfg.ASR.Discover = a.discover
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}
	a.cfg = cfg

	if cmd.Annotations[annotationTUI] != "" {
		noTUI, _ := cmd.Flags().GetBool("no-tui")
		a.tui = !noTUI
	}

	var file io.Writer
	if cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.logSink = f
		file = f
	}

	out := logging.Output(file, a.tui)
	if out == os.Stderr {
		out = a.stderr
	}
	a.logger = logging.New(logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     out,
	})

	a.logger.Debug().Str("version", version.Version).Str("command", cmd.Name()).Msg("starting")
	return nil
}

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}
