package graphstore

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/emergent-company/kevinbacon/pkg/logger"
)

const memoryBackend = "memory"

// DefaultShards is the lock stripe count used when none is configured.
const DefaultShards = 64

type memActor struct {
	name   string
	movies map[string]struct{}
}

type memMovie struct {
	name   string
	actors map[string]struct{}
}

type actorShard struct {
	mu     sync.RWMutex
	actors map[string]*memActor
}

type movieShard struct {
	mu     sync.RWMutex
	movies map[string]*memMovie
}

// MemoryStore keeps the graph in process memory.
//
// Actors and movies live in separate sets of hash-striped shards, so writes to
// unrelated ids rarely contend. An edge write holds the actor's shard and then
// the movie's shard, always in that order. gate is held shared by every
// operation and exclusively by Reset.
type MemoryStore struct {
	gate   sync.RWMutex
	actors []actorShard
	movies []movieShard
	closed atomic.Bool
	log    *slog.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store with the given number of lock stripes
// per entity kind.
func NewMemoryStore(shards int, log *slog.Logger) *MemoryStore {
	if shards < 1 {
		shards = DefaultShards
	}
	s := &MemoryStore{
		actors: make([]actorShard, shards),
		movies: make([]movieShard, shards),
		log:    log.With(logger.Scope("graphstore.memory")),
	}
	s.clear()
	s.log.Info("memory graph store ready", slog.Int("shards", shards))
	return s
}

func (s *MemoryStore) clear() {
	for i := range s.actors {
		s.actors[i].actors = make(map[string]*memActor)
	}
	for i := range s.movies {
		s.movies[i].movies = make(map[string]*memMovie)
	}
}

func (s *MemoryStore) actorShard(id string) *actorShard {
	return &s.actors[xxhash.Sum64String(id)%uint64(len(s.actors))]
}

func (s *MemoryStore) movieShard(id string) *movieShard {
	return &s.movies[xxhash.Sum64String(id)%uint64(len(s.movies))]
}

// enter takes the shared gate after checking ctx and the closed flag.
func (s *MemoryStore) enter(ctx context.Context, op string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, Fail(memoryBackend, op, err)
	}
	if s.closed.Load() {
		return nil, Fail(memoryBackend, op, ErrClosed)
	}
	s.gate.RLock()
	return s.gate.RUnlock, nil
}

func (s *MemoryStore) AddActor(ctx context.Context, name, actorID string) (bool, error) {
	leave, err := s.enter(ctx, "add actor")
	if err != nil {
		return false, err
	}
	defer leave()

	sh := s.actorShard(actorID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.actors[actorID]; ok {
		return false, nil
	}
	sh.actors[actorID] = &memActor{name: name, movies: make(map[string]struct{})}
	return true, nil
}

func (s *MemoryStore) AddMovie(ctx context.Context, name, movieID string) (bool, error) {
	leave, err := s.enter(ctx, "add movie")
	if err != nil {
		return false, err
	}
	defer leave()

	sh := s.movieShard(movieID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.movies[movieID]; ok {
		return false, nil
	}
	sh.movies[movieID] = &memMovie{name: name, actors: make(map[string]struct{})}
	return true, nil
}

func (s *MemoryStore) AddRelationship(ctx context.Context, actorID, movieID string) (LinkOutcome, error) {
	leave, err := s.enter(ctx, "add relationship")
	if err != nil {
		return 0, err
	}
	defer leave()

	as := s.actorShard(actorID)
	as.mu.Lock()
	defer as.mu.Unlock()
	ms := s.movieShard(movieID)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	a, actorOK := as.actors[actorID]
	m, movieOK := ms.movies[movieID]
	if !actorOK || !movieOK {
		return MissingLink(actorOK, movieOK), nil
	}
	if _, ok := a.movies[movieID]; ok {
		return LinkExists, nil
	}
	a.movies[movieID] = struct{}{}
	m.actors[actorID] = struct{}{}
	return LinkCreated, nil
}

func (s *MemoryStore) GetActor(ctx context.Context, actorID string) (*Actor, error) {
	leave, err := s.enter(ctx, "get actor")
	if err != nil {
		return nil, err
	}
	defer leave()

	sh := s.actorShard(actorID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	a, ok := sh.actors[actorID]
	if !ok {
		return nil, nil
	}
	return &Actor{ID: actorID, Name: a.name}, nil
}

func (s *MemoryStore) GetMovie(ctx context.Context, movieID string) (*Movie, error) {
	leave, err := s.enter(ctx, "get movie")
	if err != nil {
		return nil, err
	}
	defer leave()

	sh := s.movieShard(movieID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	m, ok := sh.movies[movieID]
	if !ok {
		return nil, nil
	}
	return &Movie{ID: movieID, Name: m.name}, nil
}

func (s *MemoryStore) HasRelationship(ctx context.Context, actorID, movieID string) (bool, error) {
	leave, err := s.enter(ctx, "has relationship")
	if err != nil {
		return false, err
	}
	defer leave()

	// Edges are recorded on both sides under both locks, so the actor side alone is authoritative.
	sh := s.actorShard(actorID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	a, ok := sh.actors[actorID]
	if !ok {
		return false, nil
	}
	_, ok = a.movies[movieID]
	return ok, nil
}

func (s *MemoryStore) MoviesOf(ctx context.Context, actorIDs []string) (map[string][]string, error) {
	leave, err := s.enter(ctx, "movies of")
	if err != nil {
		return nil, err
	}
	defer leave()

	out := make(map[string][]string, len(actorIDs))
	for _, id := range actorIDs {
		sh := s.actorShard(id)
		sh.mu.RLock()
		if a, ok := sh.actors[id]; ok && len(a.movies) > 0 {
			out[id] = sortedKeys(a.movies)
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

func (s *MemoryStore) ActorsIn(ctx context.Context, movieIDs []string) (map[string][]string, error) {
	leave, err := s.enter(ctx, "actors in")
	if err != nil {
		return nil, err
	}
	defer leave()

	out := make(map[string][]string, len(movieIDs))
	for _, id := range movieIDs {
		sh := s.movieShard(id)
		sh.mu.RLock()
		if m, ok := sh.movies[id]; ok && len(m.actors) > 0 {
			out[id] = sortedKeys(m.actors)
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Fail(memoryBackend, "reset", err)
	}
	if s.closed.Load() {
		return Fail(memoryBackend, "reset", ErrClosed)
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	s.clear()
	s.log.Info("graph reset")
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return Fail(memoryBackend, "ping", ErrClosed)
	}
	return Fail(memoryBackend, "ping", ctx.Err())
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
