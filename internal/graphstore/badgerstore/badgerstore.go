// Package badgerstore is a graphstore backend on an embedded BadgerDB.
//
// Key layout (ids are uvarint length-prefixed so that prefixes never collide):
//
//	a{id}           → msgpack Actor
//	m{id}           → msgpack Movie
//	e{actor}{movie} → empty (actor → movie index)
//	r{movie}{actor} → empty (movie → actor index)
//
// Every mutation runs in one optimistic transaction that reads the keys it
// depends on. When two transactions race on the same key Badger aborts the
// later commit with ErrConflict; the store then re-runs the transaction, which
// now observes the winner's write and reports "not created".
package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

const backend = "badger"

const (
	kindActor     byte = 'a'
	kindMovie     byte = 'm'
	kindActorEdge byte = 'e'
	kindMovieEdge byte = 'r'
)

// Config holds configuration for the Badger backend.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval is how often value log GC runs; zero disables it.
	GCInterval time.Duration
	Logger     *slog.Logger
}

// InMemoryConfig returns a configuration suitable for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store implements graphstore.Store on BadgerDB.
type Store struct {
	db  *badger.DB
	log *slog.Logger

	// gate is shared by every operation and taken exclusively by Reset,
	// because DropAll must not race with open transactions.
	gate sync.RWMutex

	stopGC chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

var _ graphstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Scope("graphstore.badger"))

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, log: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}

	log.Info("badger graph store opened",
		slog.String("path", cfg.Path),
		slog.Bool("in_memory", cfg.InMemory),
	)
	return s, nil
}

func (s *Store) runGC(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing worth collecting.
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warn("value log GC failed", logger.Error(err))
			}
		}
	}
}

// Close stops GC and closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		err = s.db.Close()
		s.log.Info("badger graph store closed")
	})
	return err
}

// --- keys ---

func appendID(b []byte, id string) []byte {
	b = binary.AppendUvarint(b, uint64(len(id)))
	return append(b, id...)
}

func nodeKey(kind byte, id string) []byte {
	return appendID([]byte{kind}, id)
}

func edgePrefix(kind byte, from string) []byte {
	return appendID([]byte{kind}, from)
}

func edgeKey(kind byte, from, to string) []byte {
	return append(edgePrefix(kind, from), to...)
}

// --- helpers ---

func (s *Store) enter(ctx context.Context, op string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, graphstore.Fail(backend, op, err)
	}
	if s.db.IsClosed() {
		return nil, graphstore.Fail(backend, op, graphstore.ErrClosed)
	}
	s.gate.RLock()
	return s.gate.RUnlock, nil
}

// update runs fn in a read-write transaction, re-running it on commit conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) addNode(ctx context.Context, op string, key []byte, value any) (bool, error) {
	leave, err := s.enter(ctx, op)
	if err != nil {
		return false, err
	}
	defer leave()

	data, err := msgpack.Marshal(value)
	if err != nil {
		return false, graphstore.Fail(backend, op, err)
	}

	var created bool
	err = s.update(ctx, func(txn *badger.Txn) error {
		created = false
		found, err := exists(txn, key)
		if err != nil || found {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, graphstore.Fail(backend, op, err)
	}
	return created, nil
}

func (s *Store) AddActor(ctx context.Context, name, actorID string) (bool, error) {
	return s.addNode(ctx, "add actor", nodeKey(kindActor, actorID), graphstore.Actor{ID: actorID, Name: name})
}

func (s *Store) AddMovie(ctx context.Context, name, movieID string) (bool, error) {
	return s.addNode(ctx, "add movie", nodeKey(kindMovie, movieID), graphstore.Movie{ID: movieID, Name: name})
}

func (s *Store) AddRelationship(ctx context.Context, actorID, movieID string) (graphstore.LinkOutcome, error) {
	const op = "add relationship"
	leave, err := s.enter(ctx, op)
	if err != nil {
		return 0, err
	}
	defer leave()

	var outcome graphstore.LinkOutcome
	err = s.update(ctx, func(txn *badger.Txn) error {
		actorOK, err := exists(txn, nodeKey(kindActor, actorID))
		if err != nil {
			return err
		}
		movieOK, err := exists(txn, nodeKey(kindMovie, movieID))
		if err != nil {
			return err
		}
		if !actorOK || !movieOK {
			outcome = graphstore.MissingLink(actorOK, movieOK)
			return nil
		}

		fwd := edgeKey(kindActorEdge, actorID, movieID)
		linked, err := exists(txn, fwd)
		if err != nil {
			return err
		}
		if linked {
			outcome = graphstore.LinkExists
			return nil
		}
		if err := txn.Set(fwd, nil); err != nil {
			return err
		}
		if err := txn.Set(edgeKey(kindMovieEdge, movieID, actorID), nil); err != nil {
			return err
		}
		outcome = graphstore.LinkCreated
		return nil
	})
	if err != nil {
		return 0, graphstore.Fail(backend, op, err)
	}
	return outcome, nil
}

func getNode[T any](ctx context.Context, s *Store, op string, key []byte) (*T, error) {
	leave, err := s.enter(ctx, op)
	if err != nil {
		return nil, err
	}
	defer leave()

	var out *T
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = new(T)
			return msgpack.Unmarshal(val, out)
		})
	})
	if err != nil {
		return nil, graphstore.Fail(backend, op, err)
	}
	return out, nil
}

func (s *Store) GetActor(ctx context.Context, actorID string) (*graphstore.Actor, error) {
	return getNode[graphstore.Actor](ctx, s, "get actor", nodeKey(kindActor, actorID))
}

func (s *Store) GetMovie(ctx context.Context, movieID string) (*graphstore.Movie, error) {
	return getNode[graphstore.Movie](ctx, s, "get movie", nodeKey(kindMovie, movieID))
}

func (s *Store) HasRelationship(ctx context.Context, actorID, movieID string) (bool, error) {
	const op = "has relationship"
	leave, err := s.enter(ctx, op)
	if err != nil {
		return false, err
	}
	defer leave()

	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, edgeKey(kindActorEdge, actorID, movieID))
		return err
	})
	if err != nil {
		return false, graphstore.Fail(backend, op, err)
	}
	return found, nil
}

// neighbors scans the edge index of kind for each id. Keys come back in byte
// order, so every slice is already sorted.
func (s *Store) neighbors(ctx context.Context, op string, kind byte, ids []string) (map[string][]string, error) {
	leave, err := s.enter(ctx, op)
	if err != nil {
		return nil, err
	}
	defer leave()

	out := make(map[string][]string, len(ids))
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			prefix := edgePrefix(kind, id)
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			var adj []string
			for it.Rewind(); it.Valid(); it.Next() {
				adj = append(adj, string(it.Item().Key()[len(prefix):]))
			}
			it.Close()
			if len(adj) > 0 {
				out[id] = adj
			}
		}
		return nil
	})
	if err != nil {
		return nil, graphstore.Fail(backend, op, err)
	}
	return out, nil
}

func (s *Store) MoviesOf(ctx context.Context, actorIDs []string) (map[string][]string, error) {
	return s.neighbors(ctx, "movies of", kindActorEdge, actorIDs)
}

func (s *Store) ActorsIn(ctx context.Context, movieIDs []string) (map[string][]string, error) {
	return s.neighbors(ctx, "actors in", kindMovieEdge, movieIDs)
}

func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return graphstore.Fail(backend, "reset", err)
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := s.db.DropAll(); err != nil {
		return graphstore.Fail(backend, "reset", err)
	}
	s.log.Info("graph reset")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return graphstore.Fail(backend, "ping", graphstore.ErrClosed)
	}
	return graphstore.Fail(backend, "ping", ctx.Err())
}

// badgerLogger adapts slog.Logger to Badger's Logger interface. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
