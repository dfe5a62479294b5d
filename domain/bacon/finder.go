package bacon

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/pkg/logger"
	"github.com/emergent-company/kevinbacon/pkg/tracing"
)

// Outcome classifies a search.
type Outcome int

const (
	Found Outcome = iota
	// ActorNotFound means the queried actor does not exist.
	ActorNotFound
	// NoPath means the actor exists but shares no chain of movies with the reference actor.
	NoPath
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case ActorNotFound:
		return "actor_not_found"
	case NoPath:
		return "no_path"
	default:
		return "unknown"
	}
}

// StepKind tells actor steps from movie steps on a Path.
type StepKind string

const (
	StepActor StepKind = "actor"
	StepMovie StepKind = "movie"
)

type Step struct {
	Kind StepKind `json:"kind"`
	ID   string   `json:"id"`
}

// Path alternates actor and movie steps. It starts at the reference actor
// and ends at the queried actor.
type Path struct {
	Nodes []Step
}

// Actors returns the actor ids on the path in travel order.
func (p Path) Actors() []string {
	return p.ids(StepActor)
}

// Movies returns the movie ids on the path in travel order.
func (p Path) Movies() []string {
	return p.ids(StepMovie)
}

func (p Path) ids(kind StepKind) []string {
	out := make([]string, 0, len(p.Nodes)/2+1)
	for _, s := range p.Nodes {
		if s.Kind == kind {
			out = append(out, s.ID)
		}
	}
	return out
}

// Result of a Bacon search. Number and Path are only meaningful when
// Outcome is Found; Number is the count of movies on Path.
type Result struct {
	Outcome Outcome
	Number  int
	Path    Path
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 500
	fetchParallelism = 4
)

// Finder computes Bacon numbers and paths against a graphstore.Store.
// It holds no graph state; every search reads through the store.
type Finder struct {
	store     graphstore.Store
	reference string
	timeout   time.Duration
	batchSize int
	metrics   *Metrics
	log       *slog.Logger

	mu       sync.Mutex
	inflight map[string]*searches
}

// call is one search shared by every caller that joined it before it began.
type call struct {
	ctx  context.Context
	done chan struct{}
	res  *Result
	err  error
}

func newCall(ctx context.Context) *call {
	return &call{ctx: ctx, done: make(chan struct{})}
}

// searches tracks the running search for one actor and the search queued
// behind it. Callers arriving while one runs wait for the queued one, so no
// caller is ever answered by a search that started before it asked.
type searches struct {
	running *call
	queued  *call
}

type Option func(*Finder)

// WithTimeout bounds each search, including all store calls it makes.
func WithTimeout(d time.Duration) Option {
	return func(f *Finder) { f.timeout = d }
}

// WithBatchSize caps the number of ids passed to one adjacency call.
func WithBatchSize(n int) Option {
	return func(f *Finder) { f.batchSize = n }
}

func WithMetrics(m *Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

func WithLogger(log *slog.Logger) Option {
	return func(f *Finder) { f.log = log }
}

// NewFinder creates a Finder measuring distances to referenceID.
func NewFinder(store graphstore.Store, referenceID string, opts ...Option) *Finder {
	f := &Finder{
		store:     store,
		reference: referenceID,
		timeout:   DefaultTimeout,
		batchSize: DefaultBatchSize,
		log:       slog.Default(),
		inflight:  map[string]*searches{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.batchSize < 1 {
		f.batchSize = DefaultBatchSize
	}
	f.log = f.log.With(logger.Scope("bacon.finder"))
	return f
}

// Reference returns the id all distances are measured from.
func (f *Finder) Reference() string { return f.reference }

// Find returns the shortest path from the reference actor to actorID.
// Business outcomes are reported in Result; err is only ever a store failure
// or the caller's context ending.
//
// Concurrent calls for the same actor share searches, but a call only shares
// a search that starts after it was made, so writes completed before Find is
// called are always seen. Shared searches are bounded by the finder's timeout
// rather than by any single caller's context.
func (f *Finder) Find(ctx context.Context, actorID string) (*Result, error) {
	if actorID == f.reference {
		return &Result{
			Outcome: Found,
			Path:    Path{Nodes: []Step{{Kind: StepActor, ID: f.reference}}},
		}, nil
	}

	c := f.join(ctx, actorID)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		return c.res, nil
	}
}

// join returns the search the caller will be answered by: a new one when
// nothing runs for actorID, otherwise the one queued behind the running search.
func (f *Finder) join(ctx context.Context, actorID string) *call {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := f.inflight[actorID]
	if st == nil {
		c := newCall(ctx)
		f.inflight[actorID] = &searches{running: c}
		go f.run(actorID, c)
		return c
	}
	if st.queued == nil {
		st.queued = newCall(ctx)
	}
	return st.queued
}

// run executes c, then whatever queued behind it, until nothing is left.
func (f *Finder) run(actorID string, c *call) {
	for c != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), f.timeout)
		c.res, c.err = f.search(ctx, actorID)
		cancel()
		close(c.done)

		f.mu.Lock()
		st := f.inflight[actorID]
		c, st.running, st.queued = st.queued, st.queued, nil
		if c == nil {
			delete(f.inflight, actorID)
		}
		f.mu.Unlock()
	}
}

func (f *Finder) search(ctx context.Context, target string) (res *Result, err error) {
	ctx, span := tracing.Start(ctx, "bacon.find",
		attribute.String("bacon.actor_id", target),
		attribute.String("bacon.reference_id", f.reference),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("bacon.outcome", res.Outcome.String()),
				attribute.Int("bacon.number", res.Number),
			)
		}
		span.End()
	}()

	actor, err := f.store.GetActor(ctx, target)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return &Result{Outcome: ActorNotFound}, nil
	}

	// Level-synchronous BFS over the bipartite graph. Each round expands the
	// actor frontier to unseen movies, then those movies to unseen actors, so
	// the first time target is reached it is at minimum depth.
	actorVia := map[string]string{f.reference: ""} // actor -> movie it was reached through
	movieVia := map[string]string{}                // movie -> actor it was reached through
	frontier := []string{f.reference}
	visited := 1
	defer func() {
		if f.metrics != nil {
			f.metrics.visited.Observe(float64(visited))
		}
	}()

	for depth := 1; len(frontier) > 0; depth++ {
		moviesByActor, err := f.fetch(ctx, frontier, f.store.MoviesOf)
		if err != nil {
			return nil, err
		}
		var movies []string
		for _, a := range frontier {
			for _, m := range moviesByActor[a] {
				if _, seen := movieVia[m]; !seen {
					movieVia[m] = a
					movies = append(movies, m)
				}
			}
		}
		if len(movies) == 0 {
			break
		}
		visited += len(movies)

		castByMovie, err := f.fetch(ctx, movies, f.store.ActorsIn)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, m := range movies {
			for _, a := range castByMovie[m] {
				if _, seen := actorVia[a]; seen {
					continue
				}
				actorVia[a] = m
				if a == target {
					path := f.unwind(target, actorVia, movieVia)
					f.log.Debug("path found",
						slog.String("actor_id", target),
						slog.Int("bacon_number", depth),
					)
					return &Result{Outcome: Found, Number: depth, Path: path}, nil
				}
				next = append(next, a)
			}
		}
		visited += len(next)
		frontier = next
	}

	return &Result{Outcome: NoPath}, nil
}

// fetch calls adjacency over ids in batches, a few batches at a time, and
// merges the results.
func (f *Finder) fetch(ctx context.Context, ids []string, adjacency func(context.Context, []string) (map[string][]string, error)) (map[string][]string, error) {
	if len(ids) <= f.batchSize {
		return adjacency(ctx, ids)
	}

	batches := slices.Collect(slices.Chunk(ids, f.batchSize))
	parts := make([]map[string][]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i, batch := range batches {
		g.Go(func() error {
			m, err := adjacency(gctx, batch)
			parts[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(ids))
	for _, m := range parts {
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

// unwind follows parent links from target back to the reference actor and
// returns the path in reference-first order.
func (f *Finder) unwind(target string, actorVia, movieVia map[string]string) Path {
	var nodes []Step
	for a := target; ; {
		nodes = append(nodes, Step{Kind: StepActor, ID: a})
		if a == f.reference {
			break
		}
		m := actorVia[a]
		nodes = append(nodes, Step{Kind: StepMovie, ID: m})
		a = movieVia[m]
	}
	slices.Reverse(nodes)
	return Path{Nodes: nodes}
}
