package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *RootOptions) *cobra.Command {
	var (
		force bool
		path  string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  exactArgs(0, "config init [--force] [--path file]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.GlobalPath()
			}
			err := config.WriteDefault(path, force)
			if errors.Is(err, config.ErrExists) {
				return usagef("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "wrote "+path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&path, "path", "", "target file (default the global config)")
	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  exactArgs(0, "config show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Marshal(opts.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
