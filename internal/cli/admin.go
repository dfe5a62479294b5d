package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			version, _ := h.Version["version"].(string)
			return a.printer(cmd).print(h,
				[]string{"STATUS", "UPTIME", "VERSION"},
				[][]string{{h.Status, h.Uptime, version}})
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every actor, movie and relationship",
		Long: `Delete the whole graph. The server must run with ADMIN_RESET_ENABLED=true.
This cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := a.client().Reset(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "graph reset")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
