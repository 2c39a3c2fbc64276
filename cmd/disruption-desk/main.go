// disruption-desk is a terminal dashboard for logistics disruption
// response. Operators pick an active disruption, answer the assistant's
// question about how to respond, and then review, approve, and track the
// action tickets the backend generates.
//
// With --export the dashboard is not started: the stored session is
// used to write every ticket to a file and the program exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/nhle/disruption-desk/internal/api"
	"github.com/nhle/disruption-desk/internal/app"
	"github.com/nhle/disruption-desk/internal/credential"
	"github.com/nhle/disruption-desk/internal/logging"
	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/notify"
	"github.com/nhle/disruption-desk/internal/session"
	"github.com/nhle/disruption-desk/internal/store"
	"github.com/nhle/disruption-desk/internal/tickets"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	apiURL     string
	logLevel   string
	export     string
	outDir     string
	noSound    bool
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("disruption-desk", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	flagSet.StringVar(&opts.apiURL, "api-url", "", "backend base URL (overrides config)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.StringVar(&opts.export, "export", "", "export all tickets as csv, json or xlsx and exit")
	flagSet.StringVar(&opts.outDir, "out", "", "directory for --export files (overrides config)")
	flagSet.BoolVar(&opts.noSound, "no-sound", false, "disable notification sounds")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	logger, closer, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := os.MkdirAll(model.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	db, err := store.NewSQLiteStore(model.DefaultDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := credential.Open()
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second, logger)
	sessions := session.NewManager(client, tokens, db, logger)

	if opts.export != "" {
		return runExport(client, sessions, db, cfg, opts.export, logger)
	}

	center := newCenter(cfg, logger)
	logger.Info("starting dashboard", "api", client.BaseURL())

	m := app.New(app.Deps{
		Backend:    client,
		Sessions:   sessions,
		Center:     center,
		History:    db,
		Config:     cfg,
		Logger:     logger,
		ConfigPath: opts.configPath,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func applyFlags(cfg *model.AppConfig, opts options) {
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.outDir != "" {
		cfg.Export.Dir = opts.outDir
	}
	if opts.noSound {
		cfg.Notifications.Sound = false
	}
}

func newCenter(cfg *model.AppConfig, logger *slog.Logger) *notify.Center {
	opts := []notify.Option{
		notify.WithSound(notify.NewSystemSound(notify.OSRunner{}, nil)),
		notify.WithSoundEnabled(cfg.Notifications.Sound),
	}
	if cfg.Notifications.Desktop {
		opts = append(opts, notify.WithDesktop(notify.NewSystemDesktop(notify.OSRunner{})))
	}
	center := notify.NewCenter(logger, opts...)
	center.RequestPermission()
	return center
}

// runExport writes every ticket using the stored session and prints the
// file path.
func runExport(
	client *api.Client,
	sessions *session.Manager,
	history store.Store,
	cfg *model.AppConfig,
	format string,
	logger *slog.Logger,
) error {
	f, err := tickets.ParseFormat(format)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return errors.New("not signed in; start the dashboard and sign in first")
	}
	if err != nil {
		return err
	}

	res, err := tickets.NewExporter(client, history, cfg.Export.Dir, logger).Export(ctx, f, sess.Operator.ID)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d tickets to %s\n", res.Count, res.Path)
	return nil
}
