package cli

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emergent-company/kevinbacon/internal/seed"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		files seed.Files
		opts  seed.Options
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load IMDb datasets into the graph",
		Long: `Load actors, movies and roles from the IMDb non-commercial datasets
(https://datasets.imdbws.com). Files may be gzipped. Rows that already
exist are skipped, so an interrupted load can be rerun.`,
		Example: `  baconctl seed \
    --names name.basics.tsv.gz \
    --titles title.basics.tsv.gz \
    --principals title.principals.tsv.gz \
    --limit 10000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			stats, err := seed.Run(cmd.Context(), a.client(), files, opts)
			if err != nil {
				return err
			}
			row := func(kind string, c *seed.Counter) []string {
				return []string{kind, strconv.FormatInt(c.Created.Load(), 10), strconv.FormatInt(c.Skipped.Load(), 10)}
			}
			summary := map[string]map[string]int64{
				"actors":        {"created": stats.Actors.Created.Load(), "skipped": stats.Actors.Skipped.Load()},
				"movies":        {"created": stats.Movies.Created.Load(), "skipped": stats.Movies.Skipped.Load()},
				"relationships": {"created": stats.Relationships.Created.Load(), "skipped": stats.Relationships.Skipped.Load()},
			}
			return a.printer(cmd).print(summary,
				[]string{"KIND", "CREATED", "SKIPPED"},
				[][]string{
					row("actors", &stats.Actors),
					row("movies", &stats.Movies),
					row("relationships", &stats.Relationships),
				})
		},
	}

	f := cmd.Flags()
	f.StringVar(&files.Names, "names", "name.basics.tsv.gz", "name.basics dataset")
	f.StringVar(&files.Titles, "titles", "title.basics.tsv.gz", "title.basics dataset")
	f.StringVar(&files.Principals, "principals", "title.principals.tsv.gz", "title.principals dataset")
	f.IntVar(&opts.Concurrency, "concurrency", 8, "requests in flight")
	f.Float64Var(&opts.Rate, "rate", 0, "max requests per second (0 for unlimited)")
	f.IntVar(&opts.Limit, "limit", 0, "load at most this many titles (0 for all)")
	f.StringSliceVar(&opts.TitleTypes, "title-types", []string{"movie", "tvMovie"}, "titleType values to load")
	return cmd
}
