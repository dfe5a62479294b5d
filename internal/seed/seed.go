// Package seed loads IMDb datasets into a running server through its API.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/emergent-company/kevinbacon/internal/client"
	"github.com/emergent-company/kevinbacon/internal/imdb"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

// API is the part of client.Client the seeder writes through.
type API interface {
	AddActor(ctx context.Context, actorID, name string) (*client.Actor, error)
	AddMovie(ctx context.Context, movieID, name string) (*client.Movie, error)
	AddRelationship(ctx context.Context, actorID, movieID string) (*client.Relationship, error)
}

// Files names the three dataset files. Each may be gzipped.
type Files struct {
	Names      string
	Titles     string
	Principals string
}

type Options struct {
	// Concurrency caps in-flight requests. Defaults to 8.
	Concurrency int
	// Limit caps the number of titles loaded; 0 loads all.
	Limit int
	// TitleTypes selects titles by titleType. Defaults to movie and tvMovie.
	TitleTypes []string
	// Rate caps requests per second across all workers; 0 is unlimited.
	Rate float64
	Log  *slog.Logger
}

// Counter tallies one entity kind. Skipped counts rows the server refused
// because they already exist or reference a missing endpoint.
type Counter struct {
	Created atomic.Int64
	Skipped atomic.Int64
}

type Stats struct {
	Actors        Counter
	Movies        Counter
	Relationships Counter
}

type edge struct{ actor, movie string }

// errStop ends a dataset scan early without failing it.
var errStop = errors.New("stop")

func readFile(path string, fn func(io.Reader) error) error {
	rc, err := imdb.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := fn(rc); err != nil && !errors.Is(err, errStop) {
		return err
	}
	return nil
}

// Run reads the datasets and writes actors, then movies, then ACTED_IN edges.
// Rows that already exist are skipped, so an interrupted load can be rerun.
func Run(ctx context.Context, api API, files Files, opts Options) (*Stats, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	if len(opts.TitleTypes) == 0 {
		opts.TitleTypes = []string{"movie", "tvMovie"}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	log := opts.Log.With(logger.Scope("seed"))

	titles := map[string]string{}
	var titleOrder []string
	err := readFile(files.Titles, func(r io.Reader) error {
		return imdb.ReadTitles(r, func(t imdb.Title) error {
			if opts.Limit > 0 && len(titleOrder) >= opts.Limit {
				return errStop
			}
			if !slices.Contains(opts.TitleTypes, t.Type) {
				return nil
			}
			titles[t.ID] = t.Name
			titleOrder = append(titleOrder, t.ID)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("titles: %w", err)
	}
	log.Info("titles selected", slog.Int("count", len(titleOrder)))

	cast := map[string]string{}
	var castOrder []string
	var edges []edge
	err = readFile(files.Principals, func(r io.Reader) error {
		return imdb.ReadPrincipals(r, func(p imdb.Principal) error {
			if _, ok := titles[p.TitleID]; !ok || !p.IsCast() {
				return nil
			}
			if _, seen := cast[p.PersonID]; !seen {
				cast[p.PersonID] = ""
				castOrder = append(castOrder, p.PersonID)
			}
			edges = append(edges, edge{actor: p.PersonID, movie: p.TitleID})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("principals: %w", err)
	}

	err = readFile(files.Names, func(r io.Reader) error {
		return imdb.ReadNames(r, func(n imdb.Name) error {
			if _, ok := cast[n.ID]; ok {
				cast[n.ID] = n.Name
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("names: %w", err)
	}
	log.Info("datasets read",
		slog.Int("actors", len(castOrder)),
		slog.Int("relationships", len(edges)),
	)

	stats := &Stats{}
	w := &writer{limit: opts.Concurrency, rate: rate.NewLimiter(rate.Inf, 1)}
	if opts.Rate > 0 {
		w.rate = rate.NewLimiter(rate.Limit(opts.Rate), max(1, int(opts.Rate)))
	}

	err = each(ctx, w, castOrder, func(ctx context.Context, id string) error {
		_, err := api.AddActor(ctx, id, orID(cast[id], id))
		return tally(&stats.Actors, err, "actor_exists")
	})
	if err != nil {
		return stats, fmt.Errorf("actors: %w", err)
	}

	err = each(ctx, w, titleOrder, func(ctx context.Context, id string) error {
		_, err := api.AddMovie(ctx, id, orID(titles[id], id))
		return tally(&stats.Movies, err, "movie_exists")
	})
	if err != nil {
		return stats, fmt.Errorf("movies: %w", err)
	}

	err = each(ctx, w, edges, func(ctx context.Context, e edge) error {
		_, err := api.AddRelationship(ctx, e.actor, e.movie)
		return tally(&stats.Relationships, err, "relationship_exists", "missing_endpoint")
	})
	if err != nil {
		return stats, fmt.Errorf("relationships: %w", err)
	}

	log.Info("seed complete",
		slog.Int64("actors_created", stats.Actors.Created.Load()),
		slog.Int64("movies_created", stats.Movies.Created.Load()),
		slog.Int64("relationships_created", stats.Relationships.Created.Load()),
	)
	return stats, nil
}

// orID names a row by its id when the dataset has no name for it (\N).
// The server rejects empty names.
func orID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func tally(c *Counter, err error, skipCodes ...string) error {
	switch {
	case err == nil:
		c.Created.Add(1)
		return nil
	case client.HasCode(err, skipCodes...):
		c.Skipped.Add(1)
		return nil
	default:
		return err
	}
}

// writer bounds request concurrency and rate for a whole run.
type writer struct {
	limit int
	rate  *rate.Limiter
}

// each runs fn over items within w's bounds and stops at the first error.
func each[T any](ctx context.Context, w *writer, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit)
	for _, it := range items {
		if err := w.rate.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error { return fn(gctx, it) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
