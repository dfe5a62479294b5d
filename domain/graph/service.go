package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/pkg/apperror"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

// DefaultTimeout bounds each service call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Service turns store outcomes into responses and apperror values.
type Service struct {
	store   graphstore.Store
	timeout time.Duration
	log     *slog.Logger
}

type ServiceOption func(*Service)

// WithTimeout bounds every call, including all store calls it makes. A store
// that does not answer in time fails the call with a store error.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(store graphstore.Store, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, timeout: DefaultTimeout, log: log.With(logger.Scope("graph.svc"))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func storeFailure(err error) error {
	return apperror.ErrStore.WithInternal(err)
}

func (s *Service) AddActor(ctx context.Context, name, actorID string) (*ActorResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := s.store.AddActor(ctx, name, actorID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !created {
		return nil, apperror.ErrActorExists.WithDetails(map[string]any{"actorId": actorID})
	}
	s.log.Debug("actor added", slog.String("actor_id", actorID))
	return &ActorResponse{ActorID: actorID, Name: name, Movies: []string{}}, nil
}

func (s *Service) AddMovie(ctx context.Context, name, movieID string) (*MovieResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := s.store.AddMovie(ctx, name, movieID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !created {
		return nil, apperror.ErrMovieExists.WithDetails(map[string]any{"movieId": movieID})
	}
	s.log.Debug("movie added", slog.String("movie_id", movieID))
	return &MovieResponse{MovieID: movieID, Name: name, Actors: []string{}}, nil
}

func (s *Service) AddRelationship(ctx context.Context, actorID, movieID string) (*RelationshipResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	outcome, err := s.store.AddRelationship(ctx, actorID, movieID)
	if err != nil {
		return nil, storeFailure(err)
	}
	switch {
	case outcome.Created():
		return &RelationshipResponse{ActorID: actorID, MovieID: movieID, HasRelationship: true}, nil
	case outcome.MissingEndpoint():
		return nil, apperror.ErrMissingEndpoint.WithDetails(map[string]any{
			"actorExists": outcome.ActorExists(),
			"movieExists": outcome.MovieExists(),
		})
	default:
		return nil, apperror.ErrRelationshipExists
	}
}

func (s *Service) GetActor(ctx context.Context, actorID string) (*ActorResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if actor == nil {
		return nil, apperror.ErrActorNotFound
	}
	movies, err := s.store.MoviesOf(ctx, []string{actorID})
	if err != nil {
		return nil, storeFailure(err)
	}
	return &ActorResponse{ActorID: actor.ID, Name: actor.Name, Movies: nonNil(movies[actorID])}, nil
}

func (s *Service) GetMovie(ctx context.Context, movieID string) (*MovieResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	movie, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if movie == nil {
		return nil, apperror.ErrMovieNotFound
	}
	cast, err := s.store.ActorsIn(ctx, []string{movieID})
	if err != nil {
		return nil, storeFailure(err)
	}
	return &MovieResponse{MovieID: movie.ID, Name: movie.Name, Actors: nonNil(cast[movieID])}, nil
}

// HasRelationship answers false for two existing endpoints without an edge,
// and not-found when either endpoint is missing.
func (s *Service) HasRelationship(ctx context.Context, actorID, movieID string) (*RelationshipResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if actor == nil {
		return nil, apperror.ErrActorNotFound
	}
	movie, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if movie == nil {
		return nil, apperror.ErrMovieNotFound
	}

	has, err := s.store.HasRelationship(ctx, actorID, movieID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return &RelationshipResponse{ActorID: actorID, MovieID: movieID, HasRelationship: has}, nil
}

// Reset wipes the graph.
func (s *Service) Reset(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.store.Reset(ctx); err != nil {
		return storeFailure(err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
