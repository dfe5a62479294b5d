// Package pgstore is a graphstore backend on PostgreSQL.
//
// Uniqueness is enforced by primary keys: actors(id), movies(id) and
// acted_in(actor_id, movie_id). A concurrent duplicate insert loses on the
// constraint, so the check and the create are atomic without any locking here.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/database"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/internal/migrate"
	"github.com/emergent-company/kevinbacon/pkg/logger"
	"github.com/emergent-company/kevinbacon/pkg/pgutils"
)

const backend = "postgres"

type actorRow struct {
	bun.BaseModel `bun:"table:actors,alias:a"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

type movieRow struct {
	bun.BaseModel `bun:"table:movies,alias:m"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

type actedInRow struct {
	bun.BaseModel `bun:"table:acted_in,alias:ai"`

	ActorID string `bun:"actor_id,pk"`
	MovieID string `bun:"movie_id,pk"`
}

// Store implements graphstore.Store on PostgreSQL.
type Store struct {
	db     bun.IDB
	closer func() error
	log    *slog.Logger
}

var _ graphstore.Store = (*Store)(nil)

// New wraps an existing connection. The caller keeps ownership of db.
func New(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:     db,
		closer: func() error { return nil },
		log:    log.With(logger.Scope("graphstore.postgres")),
	}
}

// Open connects using cfg, applies pending migrations when cfg.AutoMigrate is
// set, and returns a store that owns the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger, zl *zap.Logger) (*Store, error) {
	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrate.NewMigrator(db.Bun.DB, zl).Up(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := New(db.Bun, log)
	s.closer = db.Close
	return s, nil
}

func (s *Store) Close() error { return s.closer() }

func (s *Store) AddActor(ctx context.Context, name, actorID string) (bool, error) {
	_, err := s.db.NewInsert().Model(&actorRow{ID: actorID, Name: name}).Exec(ctx)
	return inserted("add actor", err)
}

func (s *Store) AddMovie(ctx context.Context, name, movieID string) (bool, error) {
	_, err := s.db.NewInsert().Model(&movieRow{ID: movieID, Name: name}).Exec(ctx)
	return inserted("add movie", err)
}

// inserted maps a primary-key insert result onto created/not-created.
func inserted(op string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case pgutils.IsUniqueViolation(err):
		return false, nil
	default:
		return false, graphstore.Fail(backend, op, err)
	}
}

func (s *Store) AddRelationship(ctx context.Context, actorID, movieID string) (graphstore.LinkOutcome, error) {
	const op = "add relationship"

	// Inserting from a join of both endpoints makes a missing endpoint
	// produce zero rows instead of a foreign key error.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO acted_in (actor_id, movie_id)
		SELECT a.id, m.id FROM actors AS a, movies AS m
		WHERE a.id = ? AND m.id = ?
		ON CONFLICT DO NOTHING`, actorID, movieID)
	if err != nil && !pgutils.IsForeignKeyViolation(err) {
		return 0, graphstore.Fail(backend, op, err)
	}
	if err == nil {
		n, err := res.RowsAffected()
		if err != nil {
			return 0, graphstore.Fail(backend, op, err)
		}
		if n == 1 {
			return graphstore.LinkCreated, nil
		}
	}

	// Nothing inserted, or an endpoint vanished under a concurrent reset.
	var found struct {
		Actor bool `bun:"actor"`
		Movie bool `bun:"movie"`
	}
	err = s.db.NewRaw(`SELECT
		EXISTS (SELECT 1 FROM actors WHERE id = ?) AS actor,
		EXISTS (SELECT 1 FROM movies WHERE id = ?) AS movie`, actorID, movieID).
		Scan(ctx, &found)
	if err != nil {
		return 0, graphstore.Fail(backend, op, err)
	}
	return graphstore.MissingLink(found.Actor, found.Movie), nil
}

func (s *Store) GetActor(ctx context.Context, actorID string) (*graphstore.Actor, error) {
	var row actorRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", actorID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graphstore.Fail(backend, "get actor", err)
	}
	return &graphstore.Actor{ID: row.ID, Name: row.Name}, nil
}

func (s *Store) GetMovie(ctx context.Context, movieID string) (*graphstore.Movie, error) {
	var row movieRow
	err := s.db.NewSelect().Model(&row).Where("m.id = ?", movieID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graphstore.Fail(backend, "get movie", err)
	}
	return &graphstore.Movie{ID: row.ID, Name: row.Name}, nil
}

func (s *Store) HasRelationship(ctx context.Context, actorID, movieID string) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*actedInRow)(nil)).
		Where("ai.actor_id = ?", actorID).
		Where("ai.movie_id = ?", movieID).
		Exists(ctx)
	if err != nil {
		return false, graphstore.Fail(backend, "has relationship", err)
	}
	return ok, nil
}

func (s *Store) MoviesOf(ctx context.Context, actorIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(actorIDs))
	if len(actorIDs) == 0 {
		return out, nil
	}
	var rows []actedInRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("ai.actor_id IN (?)", bun.In(actorIDs)).
		Order("ai.actor_id", "ai.movie_id").
		Scan(ctx)
	if err != nil {
		return nil, graphstore.Fail(backend, "movies of", err)
	}
	for _, r := range rows {
		out[r.ActorID] = append(out[r.ActorID], r.MovieID)
	}
	return out, nil
}

func (s *Store) ActorsIn(ctx context.Context, movieIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	var rows []actedInRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("ai.movie_id IN (?)", bun.In(movieIDs)).
		Order("ai.movie_id", "ai.actor_id").
		Scan(ctx)
	if err != nil {
		return nil, graphstore.Fail(backend, "actors in", err)
	}
	for _, r := range rows {
		out[r.MovieID] = append(out[r.MovieID], r.ActorID)
	}
	return out, nil
}

// Reset truncates all three tables. TRUNCATE takes an ACCESS EXCLUSIVE lock,
// so it waits for in-flight statements and blocks new ones until it commits.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE acted_in, movies, actors"); err != nil {
		return graphstore.Fail(backend, "reset", err)
	}
	s.log.Info("graph reset")
	return nil
}

// Ping checks connectivity and that the schema has been migrated.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.NewSelect().Model((*actorRow)(nil)).Column("a.id").Limit(1).Exists(ctx)
	if pgutils.IsUndefinedTable(err) {
		return graphstore.Fail(backend, "ping", fmt.Errorf("schema not migrated: %w", err))
	}
	return graphstore.Fail(backend, "ping", err)
}
