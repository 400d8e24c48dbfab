package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// NewSyncCommand runs one sync and prints the run record as JSON.
func NewSyncCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync against the remote channel and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, root.ConfigPath)
			if err != nil {
				return err
			}
			defer a.Close()

			run, runErr := a.orchestrator.RunOnce(ctx)
			if run != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(run); err != nil {
					return err
				}
			}
			if errors.Is(runErr, domain.ErrSyncInProgress) {
				return errors.New("another sync run is in progress")
			}
			return runErr
		},
	}
}
