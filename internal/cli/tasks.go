package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// withWorkspace opens the local store and sync session around fn.
func withWorkspace(cmd *cobra.Command, opts *RootOptions, fn func(*workspace) error) error {
	w, err := openWorkspace(cmd.Context(), cmd, opts, openOptions{})
	if err != nil {
		return err
	}
	defer w.close(opts.cfg.Sync.BeaconGrace)
	return fn(w)
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task",
		Example: `  tada add Buy milk
  tada add -p home "Fix the sink"`,
		Args: minArgs(1, "add <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)
			if text == "" {
				return usagef("add: empty text")
			}
			return withWorkspace(cmd, opts, func(w *workspace) error {
				t, err := w.session.Add(text, project)
				if err != nil {
					return err
				}
				msg := "added " + ui.Truncate(t.Text, maxTextWidth)
				if t.Project != "" {
					msg += " #" + t.Project
				}
				ui.OK(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project label")
	return cmd
}

// NewListCommand creates the ls command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var (
		plain  bool
		group  bool
		filter string
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks (interactive on a terminal)",
		Args:    exactArgs(0, "ls [--plain] [--filter all|active|completed] [--group]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return usagef("%v", err)
			}
			if plain || !ui.IsTTY() {
				return withWorkspace(cmd, opts, func(w *workspace) error {
					ui.Panel(cmd.OutOrStdout(), listPanel(w.session.Tasks(), f, group, syncStatus(w)))
					return nil
				})
			}
			return runInteractive(cmd, opts, f)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a panel instead of the interactive list")
	cmd.Flags().BoolVar(&group, "group", false, "group by pending/done")
	cmd.Flags().StringVar(&filter, "filter", "all", "all, active or completed")
	return cmd
}

func runInteractive(cmd *cobra.Command, opts *RootOptions, f model.Filter) error {
	notifier := tui.NewNotifier()
	w, err := openWorkspace(cmd.Context(), cmd, opts, openOptions{logToFile: true, onChange: notifier.Notify})
	if err != nil {
		return err
	}
	defer w.close(opts.cfg.Sync.BeaconGrace)

	err = tui.Run(w.session, notifier, tui.Options{
		Filter: f,
		Theme:  opts.cfg.Theme,
		Synced: w.synced,
	})
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// NewDoneCommand creates the done command.
func NewDoneCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for the task at a 1-based index",
		Args:  exactArgs(1, "done <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(w *workspace) error {
				t, err := taskAt(w.session.Tasks(), args[0])
				if err != nil {
					return err
				}
				if err := w.session.Toggle(t.ID); err != nil {
					return err
				}
				if t.Completed {
					ui.OK(cmd.OutOrStdout(), "reopened "+ui.Truncate(t.Text, maxTextWidth))
				} else {
					ui.OK(cmd.OutOrStdout(), "done "+ui.Truncate(t.Text, maxTextWidth))
				}
				return nil
			})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the task at a 1-based index",
		Args:  exactArgs(1, "rm <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(w *workspace) error {
				t, err := taskAt(w.session.Tasks(), args[0])
				if err != nil {
					return err
				}
				if err := w.session.Delete(t.ID); err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), "removed "+ui.Truncate(t.Text, maxTextWidth))
				return nil
			})
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <text...>",
		Short: "Replace the text of a task",
		Args:  minArgs(2, "edit <index> <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args[1:])
			if text == "" {
				return usagef("edit: empty text")
			}
			return withWorkspace(cmd, opts, func(w *workspace) error {
				t, err := taskAt(w.session.Tasks(), args[0])
				if err != nil {
					return err
				}
				if err := w.session.Edit(t.ID, text); err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), "edited")
				return nil
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed tasks",
		Args:  exactArgs(0, "clear"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(w *workspace) error {
				n, err := w.session.ClearCompleted()
				if err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), fmt.Sprintf("cleared %d completed", n))
				return nil
			})
		},
	}
}

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List known project labels",
		Args:  exactArgs(0, "projects"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(w *workspace) error {
				names := w.session.Projects()
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ui.C(ui.Current().Muted, "no projects"))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
				return nil
			})
		},
	}
}
