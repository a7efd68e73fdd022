package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/syncer"
	"github.com/Makepad-fr/tada/internal/ui"
)

var errSyncOff = errors.New("sync is not configured: set api_url (or TADA_API_URL)")

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch, merge and push now",
		Args:  exactArgs(0, "sync"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.cfg.SyncActive() {
				return errSyncOff
			}
			return withWorkspace(cmd, opts, func(w *workspace) error {
				if !w.session.Enabled() {
					return fmt.Errorf("sync unavailable: %s did not answer", opts.cfg.APIURL)
				}
				if err := w.session.Flush(cmd.Context()); err != nil {
					return fmt.Errorf("push: %w", err)
				}
				ui.OK(cmd.OutOrStdout(), fmt.Sprintf("synced %d tasks as %s", len(w.session.Tasks()), w.session.UserID()))
				return nil
			})
		},
	}
}

// NewIDCommand creates the id command.
func NewIDCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Show the sync identity",
		Args:  exactArgs(0, "id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, opts.cfg.UserID)

			store, err := jsonstore.Open(opts.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("open local store: %w", err)
			}
			legacy, ok, err := syncer.LegacyIdentity(store)
			if err != nil {
				return err
			}
			if ok && legacy != opts.cfg.UserID {
				ui.Warn(out, fmt.Sprintf("this device still holds tasks under %q; they are folded in on the next sync", legacy))
			}
			return nil
		},
	}
}
