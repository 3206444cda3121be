// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// neo is a minimal terminal Matrix client. It signs in with a password,
// keeps the session in the state directory, and shows the joined rooms
// and their timelines with a composer for sending messages. Links to
// known oEmbed providers get an inline preview.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Gregoor/matrix-neo/lib/chatui"
	"github.com/Gregoor/matrix-neo/lib/config"
	"github.com/Gregoor/matrix-neo/lib/credstore"
	"github.com/Gregoor/matrix-neo/lib/embed"
	"github.com/Gregoor/matrix-neo/lib/matrixclient"
	"github.com/Gregoor/matrix-neo/lib/session"
	"github.com/Gregoor/matrix-neo/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the parsed command line.
type flags struct {
	configPath string
	homeserver string
	stateDir   string
	logOutput  string
	logLevel   string
	logout     bool
}

func run() error {
	var options flags
	flagSet := pflag.NewFlagSet("neo", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "path to the YAML configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&options.homeserver, "homeserver", "", "homeserver to sign in to, overriding the configuration")
	flagSet.StringVar(&options.stateDir, "state-dir", "", "directory for the session and the sync cache, overriding the configuration")
	flagSet.StringVar(&options.logOutput, "log-output", "", "write JSON log records to this file (in addition to the status bar)")
	flagSet.StringVar(&options.logLevel, "log-level", "", "minimum level written to --log-output (debug, info, warn, error)")
	flagSet.BoolVar(&options.logout, "logout", false, "sign out the stored session and exit")
	flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		fmt.Println(version.Full("neo"))
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(options)
	if err != nil {
		return err
	}
	if err := cfg.EnsureStateDir(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if options.logout {
		return runLogout(ctx, cfg)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("neo needs an interactive terminal")
	}
	return runInterface(ctx, cfg, options.logOutput)
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(options flags) (*config.Config, error) {
	cfg, err := config.Load(options.configPath)
	if err != nil {
		return nil, err
	}
	if options.homeserver != "" {
		cfg.Homeserver = options.homeserver
	}
	if options.stateDir != "" {
		cfg.StateDir = options.stateDir
	}
	if options.logLevel != "" {
		cfg.LogLevel = options.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// runLogout signs out the stored session without starting the
// interface: the server is told to drop the token, then the store is
// cleared.
func runLogout(ctx context.Context, cfg *config.Config) error {
	logger := newCommandLogger()
	controller, err := newController(cfg, logger, session.Config{})
	if err != nil {
		return err
	}
	defer controller.Close()

	if err := controller.Start(ctx); err != nil {
		logger.Warn("stored session could not be started, clearing it", "error", err)
	}
	switch controller.State().Kind {
	case session.KindLoggedOut:
		fmt.Fprintln(os.Stderr, "no stored session")
		return nil
	case session.KindActive, session.KindFailed:
		if err := controller.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "signed out")
		return nil
	}
	return fmt.Errorf("unexpected session state %s", controller.State())
}

// runInterface runs the chat interface until the user quits.
//
// Background logging (session, sync loop, previews) goes to the status
// bar through a chatui.LogHandler, since stderr would corrupt the
// alternate screen, and optionally to a JSON file for debugging.
func runInterface(ctx context.Context, cfg *config.Config, logOutput string) error {
	location, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	tuiHandler := chatui.NewLogHandler(slog.LevelWarn)
	var logger *slog.Logger
	if logOutput != "" {
		fileHandler, closeFile, err := openFileLogHandler(logOutput, parseLevel(cfg.LogLevel))
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, err)
		}
		defer closeFile()
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}
	slog.SetDefault(logger)

	output := termenv.NewOutput(os.Stdout)
	lipgloss.SetColorProfile(output.ColorProfile())
	lipgloss.SetHasDarkBackground(output.HasDarkBackground())

	var resolver *embed.Resolver
	if cfg.Embed.Enabled {
		registry, err := embed.LoadRegistry(cfg.Embed.ProvidersFile)
		if err != nil {
			return fmt.Errorf("loading embed providers: %w", err)
		}
		resolver = embed.NewResolver(embed.ResolverConfig{
			Registry: registry,
			Fetcher:  &embed.OEmbedFetcher{Registry: registry, HTTPClient: &http.Client{}},
			Options:  embed.Options{MaxHeight: cfg.Embed.MaxHeight},
			Timeout:  cfg.EmbedTimeout(),
			Logger:   logger.With("component", "embed"),
		})
	}

	bridge := chatui.NewBridge()
	controller, err := newController(cfg, logger, session.Config{
		OnChange:       bridge.SessionChanged,
		OnRoomsReady:   bridge.RoomsChanged,
		OnRoomsChanged: bridge.RoomsChanged,
		OnSyncState:    bridge.SyncStateChanged,
		OnRoomActivity: bridge.RoomActivity,
	})
	if err != nil {
		bridge.Close()
		return err
	}

	model := chatui.NewModel(chatui.Config{
		Backend:    chatui.SessionBackend{Controller: controller},
		Bridge:     bridge,
		Resolver:   resolver,
		Location:   location,
		Homeserver: cfg.Homeserver,
		Context:    ctx,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	tuiHandler.SetProgram(program)

	_, runErr := program.Run()

	// Unblock notifications still in flight before the controller
	// reports its shutdown through them.
	bridge.Close()
	controller.Close()
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return runErr
}

// newController builds the session controller over the state
// directory. callbacks supplies the notification hooks; its other
// fields are ignored.
func newController(cfg *config.Config, logger *slog.Logger, callbacks session.Config) (*session.Controller, error) {
	httpClient := &http.Client{}
	callbacks.Store = credstore.New(credstore.NewFileBackend(cfg.StateDir), logger.With("component", "credstore"))
	callbacks.Authenticator = &session.PasswordAuthenticator{
		Homeserver: cfg.Homeserver,
		HTTPClient: httpClient,
		Logger:     logger.With("component", "auth"),
	}
	callbacks.Connect = session.MatrixConnector(matrixclient.Config{
		HTTPClient:    httpClient,
		StateDir:      cfg.StateDir,
		Logger:        logger.With("component", "matrixclient"),
		TimelineLimit: cfg.Sync.TimelineLimit,
		HistoryLimit:  cfg.Sync.HistoryLimit,
		SyncTimeout:   cfg.SyncTimeout(),
	})
	callbacks.Logger = logger.With("component", "session")
	return session.NewController(callbacks)
}

// newCommandLogger logs to stderr for the non-interactive commands:
// text on a terminal, JSON otherwise.
func newCommandLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

// parseLevel maps a configured level name to a slog level. Unknown
// names mean info; Validate rejects them earlier.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `neo: a minimal terminal Matrix client.

Signs in with a username and password. The session is stored in the
state directory and restored on the next start; --logout ends it.

Usage:
  neo [flags]

Examples:
  # Start with the default configuration
  neo

  # Sign in to a specific homeserver
  neo --homeserver matrix.example.org

  # Keep a debug log while running
  neo --log-output /tmp/neo.jsonl --log-level debug

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
