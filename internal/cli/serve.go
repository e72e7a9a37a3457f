package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetslicer/internal/server"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/storage"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		outputRoot string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the slicing API over HTTP",
		Long: `Serve grid layout, previews, card lookup and export over HTTP for an
external user interface. Exports are written below --output-root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.config()
			if addr == "" {
				addr = cfg.Server.Addr
			}
			root, err := filepath.Abs(outputRoot)
			if err != nil {
				return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "resolve %s", outputRoot)
			}

			opts := server.Options{OutputRoot: root, Logger: c.Logger}
			if opts.Export, err = cfg.ExportOptions(); err != nil {
				return err
			}
			opts.Export.Logger = c.Logger

			if cfg.ArkhamDB.Enabled {
				client, closeFn, err := c.newCardClient(ctx, noCache)
				if err != nil {
					return err
				}
				defer closeFn()
				opts.Cards = client
			}
			if cfg.Storage.Enabled {
				if opts.Uploader, err = storage.New(ctx, cfg.Storage.Config, c.Logger); err != nil {
					return err
				}
			}

			c.Logger.Info("serving", "addr", addr, "output", root,
				"lookup", cfg.ArkhamDB.Enabled, "upload", cfg.Storage.Enabled)
			return server.New(opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings, :8080)")
	cmd.Flags().StringVar(&outputRoot, "output-root", ".", "directory export folders are created in")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}
