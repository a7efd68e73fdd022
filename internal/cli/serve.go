package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/store/kvstore"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync endpoint",
		Long: `Serve GET/POST/OPTIONS /api/todos backed by a SQLite file.

With an empty --db every request is answered with a storage error, which is
how the endpoint behaves when no storage is bound.`,
		Args: exactArgs(0, "serve [--addr host:port] [--db path]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			logger, closer, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFile, "")
			if err != nil {
				return err
			}
			defer closer.Close()

			var kv api.KV
			if cfg.Server.DBPath != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o700); err != nil {
					return fmt.Errorf("mkdir: %w", err)
				}
				store, err := kvstore.Open(cfg.Server.DBPath)
				if err != nil {
					return fmt.Errorf("open %s: %w", cfg.Server.DBPath, err)
				}
				defer store.Close()
				kv = store
			} else {
				logger.Warn("no storage bound, every request will fail")
			}

			gin.SetMode(ginMode(cfg.LogLevel))
			srv := api.NewServer(kv, logger.WithPrefix("api"))
			return srv.Run(cmd.Context(), cfg.Server.Addr)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "listen address (default :8787)")
	f.String("db", "", "SQLite file holding the lists")
	bind(opts.v, f.Lookup("addr"), "server.addr")
	bind(opts.v, f.Lookup("db"), "server.db_path")
	return cmd
}

// ginMode keeps gin's route dump and debug warnings out of stdout unless the
// operator asked for debug logs.
func ginMode(level string) string {
	if lvl, err := logging.ParseLevel(level); err == nil && lvl == log.DebugLevel {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
