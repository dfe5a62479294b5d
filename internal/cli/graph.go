package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emergent-company/kevinbacon/internal/client"
)

func actorRows(a *client.Actor) [][]string {
	return [][]string{{a.ActorID, a.Name, strings.Join(a.Movies, ", ")}}
}

func movieRows(m *client.Movie) [][]string {
	return [][]string{{m.MovieID, m.Name, strings.Join(m.Actors, ", ")}}
}

var (
	actorHeaders = []string{"ACTOR ID", "NAME", "MOVIES"}
	movieHeaders = []string{"MOVIE ID", "NAME", "ACTORS"}
	relHeaders   = []string{"ACTOR ID", "MOVIE ID", "ACTED IN"}
)

func newActorCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Add and inspect actors",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "add <actor-id> <name>",
			Short:   "Add an actor",
			Example: `  baconctl actor add nm0000102 "Kevin Bacon"`,
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				actor, err := a.client().AddActor(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.printer(cmd).print(actor, actorHeaders, actorRows(actor))
			},
		},
		&cobra.Command{
			Use:   "get <actor-id>",
			Short: "Show an actor and their movies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				actor, err := a.client().GetActor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printer(cmd).print(actor, actorHeaders, actorRows(actor))
			},
		},
	)
	return cmd
}

func newMovieCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movie",
		Short: "Add and inspect movies",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "add <movie-id> <name>",
			Short:   "Add a movie",
			Example: `  baconctl movie add tt0087277 Footloose`,
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				movie, err := a.client().AddMovie(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.printer(cmd).print(movie, movieHeaders, movieRows(movie))
			},
		},
		&cobra.Command{
			Use:   "get <movie-id>",
			Short: "Show a movie and its cast",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				movie, err := a.client().GetMovie(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printer(cmd).print(movie, movieHeaders, movieRows(movie))
			},
		},
	)
	return cmd
}

func newRelationshipCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationship",
		Aliases: []string{"rel"},
		Short:   "Link actors to movies",
	}
	run := func(has bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c := a.client()
			var (
				rel *client.Relationship
				err error
			)
			if has {
				rel, err = c.HasRelationship(cmd.Context(), args[0], args[1])
			} else {
				rel, err = c.AddRelationship(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			return a.printer(cmd).print(rel, relHeaders,
				[][]string{{rel.ActorID, rel.MovieID, strconv.FormatBool(rel.HasRelationship)}})
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <actor-id> <movie-id>",
			Short: "Record that an actor acted in a movie",
			Args:  cobra.ExactArgs(2),
			RunE:  run(false),
		},
		&cobra.Command{
			Use:   "has <actor-id> <movie-id>",
			Short: "Check whether an actor acted in a movie",
			Args:  cobra.ExactArgs(2),
			RunE:  run(true),
		},
	)
	return cmd
}
