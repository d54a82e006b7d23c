package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/convo/internal/config"
	"github.com/pders01/convo/internal/debuglog"
	"github.com/pders01/convo/internal/search"
	"github.com/pders01/convo/internal/storage"
	"github.com/pders01/convo/internal/tui"
	"github.com/pders01/convo/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	quiet      bool
}

type tuiOptions struct {
	session string
	follow  string
	find    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	t := &tuiOptions{}

	root := &cobra.Command{
		Use:          "convo",
		Short:        "Browse and search conversation transcripts",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, o, t)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Path to configuration file")
	pf.StringVar(&o.dbPath, "db", "", "Path to database file (overrides config)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: off, error, warn, info, debug")
	pf.BoolVar(&o.quiet, "quiet", false, "Skip startup banner")

	root.Flags().StringVar(&t.session, "session", "", "Open a stored session by ID")
	root.Flags().StringVar(&t.follow, "follow", "", "Follow a transcript file and reload it on change")
	root.Flags().StringVar(&t.find, "find", "", "Open the find bar with this query")

	root.AddCommand(
		newImportCmd(o),
		newSessionsCmd(o),
		newGrepCmd(o),
		newCompactCmd(o),
		newConfigCmd(o),
		newVersionCmd(),
	)
	return root
}

// env holds what every store-backed command needs.
type env struct {
	cfg       *config.Config
	store     *storage.Store
	indexPath string
}

// pathHandler confines the default data locations. Paths the user names
// explicitly are only checked for malformed input.
func (o *rootOptions) pathHandler() *validation.PathHandler {
	if o.dbPath != "" || o.configPath != "" {
		return validation.NewPermissivePathHandler()
	}
	return validation.NewSecurePathHandler()
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path != "" {
		p, err := validation.NewPermissivePathHandler().ConfigPath(path)
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	return cfg, nil
}

func (o *rootOptions) open() (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	ph := o.pathHandler()
	logPath, err := ph.LogPath(cfg.Log.Path)
	if err != nil {
		return nil, fmt.Errorf("log path: %w", err)
	}
	err = debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), debuglog.Options{
		Path:       logPath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	dbPath, err := ph.DBPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	indexPath, err := ph.IndexPath(cfg.Database.SearchIndex)
	if err != nil {
		return nil, fmt.Errorf("index path: %w", err)
	}

	store, err := storage.NewStoreWithTimeout(dbPath, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	debuglog.WithFields(map[string]any{"db": dbPath, "index": indexPath}).Debugf("convo: opened store")
	return &env{cfg: cfg, store: store, indexPath: indexPath}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
	_ = debuglog.Close()
}

// openIndex opens the cross-session index, bringing it up to date with the
// store.
func (e *env) openIndex() (search.SessionIndex, error) {
	return search.NewSessionIndex(e.store, e.indexPath)
}

func runTUI(cmd *cobra.Command, o *rootOptions, t *tuiOptions) error {
	opts := tui.Options{SessionID: t.session, Query: t.find}
	if t.follow != "" {
		path, err := validation.NewPermissivePathHandler().TranscriptPath(t.follow)
		if err != nil {
			return err
		}
		opts.FollowPath = path
	}

	e, err := o.open()
	if err != nil {
		return err
	}
	defer e.Close()

	idx, err := e.openIndex()
	if err != nil {
		debuglog.Warnf("convo: search index unavailable: %v", err)
	} else {
		defer idx.Close()
		opts.Index = idx
	}

	if !o.quiet {
		tui.ShowBanner(cmd.OutOrStdout(), Version)
	}

	app := tui.NewApp(e.store, e.cfg, opts)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
