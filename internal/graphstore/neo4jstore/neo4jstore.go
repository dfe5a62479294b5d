// Package neo4jstore is a graphstore backend on Neo4j.
//
// Nodes are (:actor {id, name}) and (:movie {id, name}) joined by
// [:ACTED_IN]. Uniqueness constraints on both ids make MERGE atomic per
// identity; whether a call created anything is read from the summary counters.
// Every statement runs as a parameterized auto-commit query, so the driver
// never retries on our behalf.
package neo4jstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

const backend = "neo4j"

var constraints = []string{
	"CREATE CONSTRAINT actor_id_unique IF NOT EXISTS FOR (a:actor) REQUIRE a.id IS UNIQUE",
	"CREATE CONSTRAINT movie_id_unique IF NOT EXISTS FOR (m:movie) REQUIRE m.id IS UNIQUE",
}

const (
	mergeActor = `MERGE (a:actor {id: $id}) ON CREATE SET a.name = $name`
	mergeMovie = `MERGE (m:movie {id: $id}) ON CREATE SET m.name = $name`

	// Touching a property write-locks the actor before MERGE, so two
	// concurrent calls for the same pair cannot both create the edge.
	mergeActedIn = `
OPTIONAL MATCH (a:actor {id: $actorId})
OPTIONAL MATCH (m:movie {id: $movieId})
FOREACH (_ IN CASE WHEN a IS NOT NULL AND m IS NOT NULL THEN [1] ELSE [] END |
  SET a._lock = true
  REMOVE a._lock
  MERGE (a)-[:ACTED_IN]->(m)
)
RETURN a IS NOT NULL AS actorExists, m IS NOT NULL AS movieExists`

	getActor        = `MATCH (a:actor {id: $id}) RETURN a.name AS name`
	getMovie        = `MATCH (m:movie {id: $id}) RETURN m.name AS name`
	hasRelationship = `MATCH (:actor {id: $actorId})-[r:ACTED_IN]->(:movie {id: $movieId}) RETURN count(r) > 0 AS found`

	moviesOf = `
UNWIND $ids AS id
MATCH (:actor {id: id})-[:ACTED_IN]->(m:movie)
RETURN id AS src, m.id AS dst ORDER BY src, dst`
	actorsIn = `
UNWIND $ids AS id
MATCH (a:actor)-[:ACTED_IN]->(:movie {id: id})
RETURN id AS src, a.id AS dst ORDER BY src, dst`

	detachDeleteAll = `MATCH (n) DETACH DELETE n`
)

// Store implements graphstore.Store on a Neo4j driver.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger

	// gate is taken exclusively by Reset so that it never interleaves with
	// this process's own writes.
	gate sync.RWMutex
}

var _ graphstore.Store = (*Store)(nil)

// Open connects to cfg.Addr, verifies connectivity and ensures the
// uniqueness constraints exist.
func Open(ctx context.Context, cfg config.Neo4jConfig, log *slog.Logger) (*Store, error) {
	log = log.With(logger.Scope("graphstore.neo4j"))

	driver, err := neo4j.NewDriverWithContext(cfg.URI(), neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(connectCtx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	s := &Store{driver: driver, database: cfg.Database, log: log}
	for _, c := range constraints {
		if _, _, err := s.run(connectCtx, neo4j.AccessModeWrite, "ensure constraints", c, nil); err != nil {
			_ = driver.Close(context.Background())
			return nil, err
		}
	}

	log.Info("neo4j graph store connected",
		slog.String("addr", cfg.URI()),
		slog.String("database", cfg.Database),
	)
	return s, nil
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// run executes one auto-commit statement and drains it.
func (s *Store) run(ctx context.Context, mode neo4j.AccessMode, op, query string, params map[string]any) ([]*neo4j.Record, neo4j.ResultSummary, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, nil, graphstore.Fail(backend, op, err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, nil, graphstore.Fail(backend, op, err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, nil, graphstore.Fail(backend, op, err)
	}
	return records, summary, nil
}

func (s *Store) write(ctx context.Context, op, query string, params map[string]any) ([]*neo4j.Record, neo4j.ResultSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, graphstore.Fail(backend, op, err)
	}
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.run(ctx, neo4j.AccessModeWrite, op, query, params)
}

func (s *Store) read(ctx context.Context, op, query string, params map[string]any) ([]*neo4j.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, graphstore.Fail(backend, op, err)
	}
	records, _, err := s.run(ctx, neo4j.AccessModeRead, op, query, params)
	return records, err
}

func (s *Store) AddActor(ctx context.Context, name, actorID string) (bool, error) {
	_, summary, err := s.write(ctx, "add actor", mergeActor, map[string]any{"id": actorID, "name": name})
	if err != nil {
		return false, err
	}
	return summary.Counters().NodesCreated() > 0, nil
}

func (s *Store) AddMovie(ctx context.Context, name, movieID string) (bool, error) {
	_, summary, err := s.write(ctx, "add movie", mergeMovie, map[string]any{"id": movieID, "name": name})
	if err != nil {
		return false, err
	}
	return summary.Counters().NodesCreated() > 0, nil
}

func (s *Store) AddRelationship(ctx context.Context, actorID, movieID string) (graphstore.LinkOutcome, error) {
	const op = "add relationship"
	records, summary, err := s.write(ctx, op, mergeActedIn, map[string]any{"actorId": actorID, "movieId": movieID})
	if err != nil {
		return 0, err
	}
	if summary.Counters().RelationshipsCreated() > 0 {
		return graphstore.LinkCreated, nil
	}
	if len(records) != 1 {
		return 0, graphstore.Fail(backend, op, fmt.Errorf("expected 1 record, got %d", len(records)))
	}
	actorOK, _, err := neo4j.GetRecordValue[bool](records[0], "actorExists")
	if err != nil {
		return 0, graphstore.Fail(backend, op, err)
	}
	movieOK, _, err := neo4j.GetRecordValue[bool](records[0], "movieExists")
	if err != nil {
		return 0, graphstore.Fail(backend, op, err)
	}
	return graphstore.MissingLink(actorOK, movieOK), nil
}

// lookupName returns the name of the single matching node, or ok=false.
func (s *Store) lookupName(ctx context.Context, op, query, id string) (name string, ok bool, err error) {
	records, err := s.read(ctx, op, query, map[string]any{"id": id})
	if err != nil || len(records) == 0 {
		return "", false, err
	}
	name, _, err = neo4j.GetRecordValue[string](records[0], "name")
	if err != nil {
		return "", false, graphstore.Fail(backend, op, err)
	}
	return name, true, nil
}

func (s *Store) GetActor(ctx context.Context, actorID string) (*graphstore.Actor, error) {
	name, ok, err := s.lookupName(ctx, "get actor", getActor, actorID)
	if err != nil || !ok {
		return nil, err
	}
	return &graphstore.Actor{ID: actorID, Name: name}, nil
}

func (s *Store) GetMovie(ctx context.Context, movieID string) (*graphstore.Movie, error) {
	name, ok, err := s.lookupName(ctx, "get movie", getMovie, movieID)
	if err != nil || !ok {
		return nil, err
	}
	return &graphstore.Movie{ID: movieID, Name: name}, nil
}

func (s *Store) HasRelationship(ctx context.Context, actorID, movieID string) (bool, error) {
	const op = "has relationship"
	records, err := s.read(ctx, op, hasRelationship, map[string]any{"actorId": actorID, "movieId": movieID})
	if err != nil || len(records) == 0 {
		return false, err
	}
	found, _, err := neo4j.GetRecordValue[bool](records[0], "found")
	if err != nil {
		return false, graphstore.Fail(backend, op, err)
	}
	return found, nil
}

func (s *Store) adjacency(ctx context.Context, op, query string, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	records, err := s.read(ctx, op, query, map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		src, _, err := neo4j.GetRecordValue[string](rec, "src")
		if err != nil {
			return nil, graphstore.Fail(backend, op, err)
		}
		dst, _, err := neo4j.GetRecordValue[string](rec, "dst")
		if err != nil {
			return nil, graphstore.Fail(backend, op, err)
		}
		out[src] = append(out[src], dst)
	}
	return out, nil
}

func (s *Store) MoviesOf(ctx context.Context, actorIDs []string) (map[string][]string, error) {
	return s.adjacency(ctx, "movies of", moviesOf, actorIDs)
}

func (s *Store) ActorsIn(ctx context.Context, movieIDs []string) (map[string][]string, error) {
	return s.adjacency(ctx, "actors in", actorsIn, movieIDs)
}

func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return graphstore.Fail(backend, "reset", err)
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	if _, _, err := s.run(ctx, neo4j.AccessModeWrite, "reset", detachDeleteAll, nil); err != nil {
		return err
	}
	s.log.Info("graph reset")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return graphstore.Fail(backend, "ping", s.driver.VerifyConnectivity(ctx))
}
