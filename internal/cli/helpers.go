package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/syncer"
)

func bind(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
	}
}

// workspace is one opened local store plus, when configured, its sync session.
type workspace struct {
	log      *log.Logger
	logClose io.Closer
	store    *jsonstore.Store
	session  *syncer.Session
	beacon   *remote.Beacon
	synced   bool
}

type openOptions struct {
	// logToFile sends logs to the log file, for the TUI which owns the terminal.
	logToFile bool
	onChange  func([]model.Task)
}

func openWorkspace(ctx context.Context, cmd *cobra.Command, opts *RootOptions, oo openOptions) (*workspace, error) {
	cfg := opts.cfg

	logFile := cfg.LogFile
	if oo.logToFile && logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "tada.log")
	}
	logger, closer, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, logFile, "")
	if err != nil {
		return nil, err
	}

	store, err := jsonstore.Open(cfg.DataDir)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open local store: %w", err)
	}

	w := &workspace{log: logger, logClose: closer, store: store, synced: cfg.SyncActive()}

	sopts := syncer.Options{
		UserID:         cfg.UserID,
		Offline:        !w.synced,
		Debounce:       cfg.Sync.Debounce,
		ResyncInterval: cfg.Sync.ResyncInterval,
		ResyncOffline:  cfg.Sync.ResyncOffline,
		OnChange:       oo.onChange,
		Logger:         logger.WithPrefix("sync"),
	}

	var rm syncer.Remote
	if w.synced {
		client := remote.NewClient(remote.Options{
			BaseURL: cfg.APIURL,
			Timeout: cfg.Sync.RequestTimeout,
			Logger:  logger.WithPrefix("remote"),
		})
		w.beacon = remote.NewBeacon(client, cfg.Sync.BeaconQueue, logger.WithPrefix("beacon"))
		sopts.Beacon = w.beacon
		rm = client
	}

	w.session = syncer.New(store, rm, sopts)
	if err := w.session.Start(ctx); err != nil {
		w.close(cfg.Sync.BeaconGrace)
		return nil, err
	}
	return w, nil
}

// close flushes the session and gives queued pushes a grace period to land.
func (w *workspace) close(grace time.Duration) {
	w.session.Close()
	if w.beacon != nil {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := w.beacon.Close(ctx); err != nil {
			w.log.Warn("pending push abandoned", "err", err)
		}
	}
	w.logClose.Close()
}

// taskAt resolves a 1-based index as printed by `tada ls`.
func taskAt(tasks []model.Task, arg string) (model.Task, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Task{}, usagef("not a number: %s", arg)
	}
	if n < 1 || n > len(tasks) {
		return model.Task{}, usagef("index out of range: have %d, got %d", len(tasks), n)
	}
	return tasks[n-1], nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: tada %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: tada %s", usage)
		}
		return nil
	}
}
