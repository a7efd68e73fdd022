// Package cli is the tada command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// RootOptions holds global flags and the configuration they resolve to.
type RootOptions struct {
	ConfigFile string
	NoColor    bool
	Color      bool

	v   *viper.Viper
	cfg *config.Config
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

// Run executes args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	ui.Fail(stderr, err.Error())
	if isUsage(err) {
		fmt.Fprintln(stderr, ui.C(ui.Dim, "Hint: run `tada --help` for usage"))
		return ExitUsage
	}
	return ExitError
}

func isUsage(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}
	// cobra reports these as plain errors
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// NewRootCommand creates the tada command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "tada",
		Short: "tada - a synced to-do list",
		Long: `tada keeps a personal to-do list on this device and, when an endpoint is
configured, merges it with every other device sharing the same sync id.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			files := config.Files()
			if opts.ConfigFile != "" {
				files = []string{opts.ConfigFile}
			}
			cfg, err := config.Load(opts.v, files...)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			ui.SetTheme(cfg.Theme)
			if opts.NoColor || opts.Color {
				ui.SetColorForcing(opts.Color, opts.NoColor)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return usagef("no subcommand given")
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ~/.config/tada/config.yaml and ./.tada.yaml)")
	pf.String("api-url", "", "sync endpoint origin, empty for local only")
	pf.String("user-id", "", "sync identity shared by your devices")
	pf.String("data-dir", "", "directory of the local store")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("theme", "", "one of "+strings.Join(ui.Themes(), ", "))
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colors")
	pf.BoolVar(&opts.Color, "color", false, "force colors")

	bind(opts.v, pf.Lookup("api-url"), "api_url")
	bind(opts.v, pf.Lookup("user-id"), "user_id")
	bind(opts.v, pf.Lookup("data-dir"), "data_dir")
	bind(opts.v, pf.Lookup("log-level"), "log_level")
	bind(opts.v, pf.Lookup("theme"), "theme")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewProjectsCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewIDCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}
