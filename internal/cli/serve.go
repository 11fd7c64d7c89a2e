package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/datrec/internal/audit"
	"github.com/koustreak/datrec/internal/config"
	"github.com/koustreak/datrec/internal/database/drivers"
	"github.com/koustreak/datrec/internal/filestore/minio"
	"github.com/koustreak/datrec/internal/logger"
	"github.com/koustreak/datrec/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve inserts and row listings over HTTP.

Example:
  datrec serve --config ./datrec.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.New(&cfg.Logger)
	ctx = log.WithContext(ctx)

	db, err := drivers.Open(ctx, &cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()
	log.InfoWith("database ready", map[string]any{"driver": string(cfg.Database.Driver)})

	opts := []server.Option{server.WithMaxPageSize(cfg.Server.MaxPageSize)}
	if cfg.Archive.Enabled {
		store, err := minio.New(ctx, &cfg.Archive.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to archive", err)
		}
		defer store.Close()
		if err := store.EnsureBucket(ctx, cfg.Archive.Bucket); err != nil {
			return WrapExitError(ExitCommandError, "failed to prepare archive bucket", err)
		}
		opts = append(opts, server.WithArchiver(audit.New(store, cfg.Archive.Bucket, cfg.Archive.Prefix)))
		log.InfoWith("archive ready", map[string]any{"bucket": cfg.Archive.Bucket})
	}

	if err := server.New(db, log, opts...).Run(ctx, cfg.Server); err != nil {
		return WrapExitError(ExitFailure, "server stopped", err)
	}
	log.Info("server stopped")
	return nil
}
