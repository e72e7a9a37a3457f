package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetslicer/pkg/buildinfo"
	"github.com/matzehuels/sheetslicer/pkg/cache"
	"github.com/matzehuels/sheetslicer/pkg/config"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "sheetslicer"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	sessionID  string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Sheetslicer cuts card sheets into named card images",
		Long:         `Sheetslicer cuts scanned or rendered card sheets into one image per card, names each tile by hand or from ArkhamDB, and exports the tiles with embedded card metadata.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.registerHooks()
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "settings file (default ~/.config/sheetslicer/config.toml)")
	root.PersistentFlags().StringVarP(&c.sessionID, "session", "s", session.DefaultID, "session holding sheets and names")

	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.gridCommand())
	root.AddCommand(c.namesCommand())
	root.AddCommand(c.templateCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *CLI) loadConfig() error {
	if c.configPath == "" {
		path, err := config.Path()
		if err != nil {
			c.cfg = config.Default()
			return nil
		}
		c.configPath = path
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// config returns the loaded settings, or the defaults before loading.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured response cache backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config().Cache
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, sserrors.Network(err, "open redis cache")
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("file cache unavailable", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "open file cache")
	}
	return fc, nil
}

func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	return config.CacheDir()
}

// newCardClient creates an ArkhamDB client backed by the configured cache.
// The returned close function releases the cache.
func (c *CLI) newCardClient(ctx context.Context, noCache bool) (*arkhamdb.Client, func(), error) {
	cfg := c.config()
	if !cfg.ArkhamDB.Enabled {
		return nil, nil, sserrors.New(sserrors.ErrCodeUnsupported, "card lookup is disabled (arkhamdb.enabled = false)")
	}
	backend, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.ArkhamDBOptions()
	opts.Backend = backend
	opts.Logger = c.Logger
	return arkhamdb.NewClient(opts), func() { backend.Close() }, nil
}

// =============================================================================
// Sessions
// =============================================================================

func (c *CLI) sessionStore() (*session.FileStore, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "locate config dir")
	}
	return session.NewFileStore(filepath.Join(dir, "sessions"))
}

// loadSession returns the current session, creating an empty one with the
// configured grid when none is stored yet.
func (c *CLI) loadSession(ctx context.Context) (*session.FileStore, *session.Session, error) {
	store, err := c.sessionStore()
	if err != nil {
		return nil, nil, err
	}
	sess, err := store.Get(ctx, c.sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		sess = session.New(c.sessionID)
		sess.Grid = c.config().Grid
	}
	return store, sess, nil
}
