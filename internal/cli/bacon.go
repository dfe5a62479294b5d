package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newBaconCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bacon",
		Short: "Bacon number and path queries",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "number <actor-id>",
			Short: "Print an actor's Bacon number",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := a.client().BaconNumber(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := map[string]any{"actorId": args[0], "baconNumber": n}
				return a.printer(cmd).print(out,
					[]string{"ACTOR ID", "BACON NUMBER"},
					[][]string{{args[0], strconv.Itoa(n)}})
			},
		},
		&cobra.Command{
			Use:   "path <actor-id>",
			Short: "Print a shortest path from Kevin Bacon to an actor",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.client().BaconPath(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(p.Steps))
				for i, s := range p.Steps {
					rows = append(rows, []string{strconv.Itoa(i), s.Kind, s.ID})
				}
				return a.printer(cmd).print(p, []string{"STEP", "KIND", "ID"}, rows)
			},
		},
	)
	return cmd
}
