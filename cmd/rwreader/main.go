package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/reuteras/rwreader/internal/app"
	"github.com/reuteras/rwreader/internal/config"
	"github.com/reuteras/rwreader/internal/library"
	"github.com/reuteras/rwreader/internal/logging"
	"github.com/reuteras/rwreader/internal/readwise"
	articlefmt "github.com/reuteras/rwreader/internal/render/article"
	"github.com/reuteras/rwreader/internal/storage"
	"github.com/reuteras/rwreader/internal/tui"
	tuitheme "github.com/reuteras/rwreader/internal/tui/theme"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const authTimeout = 10 * time.Second

var (
	flagConfig   string
	flagLogFile  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "rwreader",
	Short:         "Terminal client for Readwise Reader",
	Long:          "rwreader browses the Inbox, Later, Archive and Feed of a Readwise Reader library in the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rwreader %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", `log file path, "-" for stderr`)
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runtimeDeps is everything a command needs to talk to Readwise.
type runtimeDeps struct {
	cfg     config.Config
	logger  *slog.Logger
	service *app.Service
	closers []io.Closer
}

func (d *runtimeDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i].Close()
	}
}

func setup(ctx context.Context) (*runtimeDeps, error) {
	cfg, err := config.Load(ctx, flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger, logCloser, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	deps := &runtimeDeps{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	repo, err := storage.NewRepository(cfg.SnapshotPath)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	deps.closers = append(deps.closers, repo)

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := repo.Init(initCtx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("storage schema error: %w", err)
	}

	client := readwise.NewClient(cfg.APIBaseURL, cfg.Token, &http.Client{Timeout: cfg.RequestTimeoutDuration()}, logger)
	if err := checkToken(ctx, client, logger); err != nil {
		deps.Close()
		return nil, err
	}
	lib := library.New(client, library.Options{
		TTL:              cfg.CacheTTLDuration(),
		ArticleCacheSize: cfg.ArticleCacheSize,
		ArchiveWindow:    cfg.ArchiveWindowDuration(),
		Logger:           logger,
	})
	deps.service = app.NewService(lib, repo, logger)
	formatOpts := articlefmt.DefaultOptions()
	formatOpts.HideImages = !cfg.Display.ImagesEnabled()
	deps.service.SetFormatOptions(formatOpts)

	logger.Info("rwreader started", "version", version, "snapshot", cfg.SnapshotPath)
	return deps, nil
}

type authenticator interface {
	Authenticate(ctx context.Context) error
}

// checkToken fails only when the service rejects the token. Network errors
// are logged so the snapshot can still be browsed offline.
func checkToken(ctx context.Context, auth authenticator, logger *slog.Logger) error {
	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	err := auth.Authenticate(authCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, readwise.ErrUnauthorized):
		return fmt.Errorf("readwise rejected the API token: %w", err)
	default:
		logger.Warn("token check failed, continuing offline", "err", err)
		return nil
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	deps, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer deps.Close()

	display := deps.cfg.Display
	model := tui.NewModel(deps.service, tui.Options{
		ShowFeed:       display.ShowFeed,
		MarkReadOnOpen: display.MarkReadOnOpen,
		WordWrap:       display.WordWrap,
		RelativeTime:   display.RelativeTime,
		Theme:          tuitheme.ForName(display.Theme),
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		deps.logger.Error("tui exited", "err", err)
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
