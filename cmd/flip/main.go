package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/flip/internal/browser"
	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/remote"
	"github.com/pders01/flip/internal/saved"
	"github.com/pders01/flip/internal/search"
	"github.com/pders01/flip/internal/server"
	"github.com/pders01/flip/internal/storage"
	"github.com/pders01/flip/internal/tui"
	"github.com/pders01/flip/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"


type rootOptions struct {
	configPath string
	dbPath     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "flip",
		Short:         "Browse the news one card at a time",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to database file (overrides config)")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newServeCmd(opts),
		newSavedCmd(opts),
	)
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	return cfg, nil
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return err
	}
	defer debuglog.Close()

	tui.ApplyTheme(cfg.UI.Colors)

	db, err := openBolt(cfg.Database.Path, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		store  saved.Store = db
		client *remote.Client
	)
	if cfg.Remote.Mode == "http" {
		client = remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout)
		store = client
	}

	source, err := newsSource(cfg, client)
	if err != nil {
		return err
	}

	idx, err := search.NewIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	sync := saved.NewSynchronizer(store, cfg.Remote.User)
	sync.SetBulkHydrate(cfg.Remote.BulkHydrate)

	debuglog.WithFields(map[string]interface{}{
		"mode":   cfg.Remote.Mode,
		"source": cfg.Feed.Source,
		"user":   cfg.Remote.User,
	}).Infof("starting flip %s", Version)

	app := tui.NewApp(cfg, tui.Deps{
		Source: source,
		Sync:   sync,
		Opener: browser.NewLauncher(cfg),
		Meta:   db,
		Index:  idx,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// newsSource picks where the feed screen gets its articles. The "api"
// source reads the news routes of the saved-item service.
func newsSource(cfg *config.Config, client *remote.Client) (feed.Source, error) {
	switch cfg.Feed.Source {
	case "api":
		if client == nil {
			client = remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout)
		}
		return client, nil
	case "rss":
		return feed.NewRSSSource(feed.NewFetcher(cfg.Feed.HTTPTimeout, cfg.Feed.UserAgent)), nil
	case "miniflux":
		return feed.NewMinifluxSource(cfg.Feed.MinifluxURL, cfg.Feed.MinifluxAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			tui.ShowBanner(cmd.OutOrStdout(), Version)
			fmt.Fprintln(cmd.OutOrStdout(), "github.com/pders01/flip")
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var output string
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := output
			if path == "" {
				home, _ := os.UserHomeDir()
				path = filepath.Join(home, ".config", "flip", "config.toml")
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
	gen.Flags().StringVarP(&output, "output", "o", "", "Where to write the file (default ~/.config/flip/config.toml)")
	cmd.AddCommand(gen)
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr     string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the saved-article and news service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			debuglog.SetupWriter(debuglog.ParseLogLevel(logLevel), cmd.ErrOrStderr())
			defer debuglog.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openServerStore(ctx, cfg, opts.dbPath != "")
			if err != nil {
				return err
			}
			defer closeStore()

			srv := server.New(store, serverNews(cfg), server.Options{})
			return server.Run(ctx, addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error or off")
	return cmd
}

// openServerStore opens the configured backend. Unless --db was given the
// bolt backend uses its own file so a local client can run alongside.
func openServerStore(ctx context.Context, cfg *config.Config, explicitDB bool) (saved.Store, func(), error) {
	switch cfg.Server.Store {
	case "postgres":
		pg, err := storage.NewPostgresStore(ctx, cfg.Server.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	default:
		path := cfg.Database.Path
		if !explicitDB {
			path = serverDBPath(path)
		}
		db, err := openBolt(path, cfg)
		if err != nil {
			return nil, nil, err
		}
		debuglog.Infof("using bolt store %s", path)
		return db, func() { db.Close() }, nil
	}
}

func serverDBPath(clientPath string) string {
	ext := filepath.Ext(clientPath)
	return strings.TrimSuffix(clientPath, ext) + "-server" + ext
}

// serverNews is the upstream behind the news routes. The service cannot
// read its own API, so "api" falls back to the category RSS feeds.
func serverNews(cfg *config.Config) feed.Source {
	if cfg.Feed.Source == "miniflux" {
		return feed.NewMinifluxSource(cfg.Feed.MinifluxURL, cfg.Feed.MinifluxAPIKey)
	}
	return feed.NewRSSSource(feed.NewFetcher(cfg.Feed.HTTPTimeout, cfg.Feed.UserAgent))
}

func newSavedCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Inspect saved articles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved articles, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			store, closeStore, err := openClientStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Remote.Timeout)
			defer cancel()
			records, err := saved.NewSynchronizer(store, cfg.Remote.User).List(ctx)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "List users with saved articles in the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := openBolt(cfg.Database.Path, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			names, err := db.Users()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.AddCommand(list, users)
	return cmd
}

func openClientStore(cfg *config.Config) (saved.Store, func(), error) {
	if cfg.Remote.Mode == "http" {
		return remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout), func() {}, nil
	}
	db, err := openBolt(cfg.Database.Path, cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func openBolt(path string, cfg *config.Config) (*storage.Store, error) {
	if err := validation.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return storage.NewStore(path, cfg.Database.Timeout)
}

func printRecords(w io.Writer, records []saved.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No saved articles")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tSOURCE\tTITLE\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.SavedAt.Format("2006-01-02"), r.Source, r.Title, r.URL)
	}
	return tw.Flush()
}
