// Package storetest is the conformance suite every graphstore backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/emergent-company/kevinbacon/internal/graphstore"
)

// Factory returns an empty store. It is called once per test; the suite
// closes the store afterwards.
type Factory func(t *testing.T) graphstore.Store

// Run executes the suite against the stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	suite.Run(t, &Suite{NewStore: newStore})
}

// Suite exercises the Store contract.
type Suite struct {
	suite.Suite
	NewStore Factory

	store graphstore.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s.T().Cleanup(cancel)
	s.ctx = ctx
	s.store = s.NewStore(s.T())
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func (s *Suite) addActor(name, id string) {
	created, err := s.store.AddActor(s.ctx, name, id)
	s.Require().NoError(err)
	s.Require().True(created, "actor %s should be new", id)
}

func (s *Suite) addMovie(name, id string) {
	created, err := s.store.AddMovie(s.ctx, name, id)
	s.Require().NoError(err)
	s.Require().True(created, "movie %s should be new", id)
}

func (s *Suite) link(actorID, movieID string) {
	outcome, err := s.store.AddRelationship(s.ctx, actorID, movieID)
	s.Require().NoError(err)
	s.Require().Equal(graphstore.LinkCreated, outcome)
}

func (s *Suite) TestAddActorIsIdempotent() {
	first, err := s.store.AddActor(s.ctx, "Kevin Bacon", "nm0000102")
	s.Require().NoError(err)
	second, err := s.store.AddActor(s.ctx, "Someone Else", "nm0000102")
	s.Require().NoError(err)

	s.True(first)
	s.False(second)

	actor, err := s.store.GetActor(s.ctx, "nm0000102")
	s.Require().NoError(err)
	s.Require().NotNil(actor)
	s.Equal("Kevin Bacon", actor.Name, "second add must not overwrite")
}

func (s *Suite) TestAddMovieIsIdempotent() {
	first, err := s.store.AddMovie(s.ctx, "Footloose", "tt0087277")
	s.Require().NoError(err)
	second, err := s.store.AddMovie(s.ctx, "Other", "tt0087277")
	s.Require().NoError(err)

	s.True(first)
	s.False(second)

	movie, err := s.store.GetMovie(s.ctx, "tt0087277")
	s.Require().NoError(err)
	s.Require().NotNil(movie)
	s.Equal("Footloose", movie.Name)
}

func (s *Suite) TestActorsAndMoviesAreSeparateNamespaces() {
	s.addActor("Actor", "x1")
	s.addMovie("Movie", "x1")

	actor, err := s.store.GetActor(s.ctx, "x1")
	s.Require().NoError(err)
	movie, err := s.store.GetMovie(s.ctx, "x1")
	s.Require().NoError(err)
	s.Equal("Actor", actor.Name)
	s.Equal("Movie", movie.Name)
}

func (s *Suite) TestIdentityIsExactMatch() {
	s.addActor("lower", "nm1")
	s.addActor("upper", "NM1")
	s.addActor("padded", " nm1")

	got, err := s.store.GetActor(s.ctx, "nm1 ")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *Suite) TestGetMissingReturnsNil() {
	actor, err := s.store.GetActor(s.ctx, "nm404")
	s.NoError(err)
	s.Nil(actor)

	movie, err := s.store.GetMovie(s.ctx, "tt404")
	s.NoError(err)
	s.Nil(movie)
}

func (s *Suite) TestRelationshipRequiresBothEndpoints() {
	s.addActor("A", "nmA")
	s.addMovie("M", "ttM")

	tests := []struct {
		actor, movie string
		want         graphstore.LinkOutcome
	}{
		{"nmA", "ttMissing", graphstore.LinkMissingMovie},
		{"nmMissing", "ttM", graphstore.LinkMissingActor},
		{"nmMissing", "ttMissing", graphstore.LinkMissingBoth},
	}
	for _, tt := range tests {
		outcome, err := s.store.AddRelationship(s.ctx, tt.actor, tt.movie)
		s.Require().NoError(err)
		s.Equal(tt.want, outcome, "%s -> %s", tt.actor, tt.movie)
		s.False(outcome.Created())
		s.True(outcome.MissingEndpoint())

		has, err := s.store.HasRelationship(s.ctx, tt.actor, tt.movie)
		s.Require().NoError(err)
		s.False(has)
	}

	movies, err := s.store.MoviesOf(s.ctx, []string{"nmA"})
	s.Require().NoError(err)
	s.Empty(movies)
}

func (s *Suite) TestRelationshipIsIdempotent() {
	s.addActor("A", "nmA")
	s.addMovie("M", "ttM")

	first, err := s.store.AddRelationship(s.ctx, "nmA", "ttM")
	s.Require().NoError(err)
	second, err := s.store.AddRelationship(s.ctx, "nmA", "ttM")
	s.Require().NoError(err)

	s.Equal(graphstore.LinkCreated, first)
	s.Equal(graphstore.LinkExists, second)

	cast, err := s.store.ActorsIn(s.ctx, []string{"ttM"})
	s.Require().NoError(err)
	s.Equal([]string{"nmA"}, cast["ttM"])
}

func (s *Suite) TestHasRelationship() {
	s.addActor("A", "nmA")
	s.addActor("B", "nmB")
	s.addMovie("M", "ttM")
	s.link("nmA", "ttM")

	has, err := s.store.HasRelationship(s.ctx, "nmA", "ttM")
	s.Require().NoError(err)
	s.True(has)

	has, err = s.store.HasRelationship(s.ctx, "nmB", "ttM")
	s.Require().NoError(err)
	s.False(has, "both endpoints exist but no edge")
}

func (s *Suite) TestAdjacency() {
	s.addActor("A", "nmA")
	s.addActor("B", "nmB")
	s.addActor("Loner", "nmL")
	s.addMovie("M1", "tt1")
	s.addMovie("M2", "tt2")
	s.addMovie("Empty", "tt3")
	s.link("nmB", "tt1")
	s.link("nmA", "tt1")
	s.link("nmA", "tt2")

	movies, err := s.store.MoviesOf(s.ctx, []string{"nmA", "nmB", "nmL", "nmGhost"})
	s.Require().NoError(err)
	s.Equal(map[string][]string{
		"nmA": {"tt1", "tt2"},
		"nmB": {"tt1"},
	}, movies)

	cast, err := s.store.ActorsIn(s.ctx, []string{"tt1", "tt2", "tt3"})
	s.Require().NoError(err)
	s.Equal(map[string][]string{
		"tt1": {"nmA", "nmB"},
		"tt2": {"nmA"},
	}, cast)

	empty, err := s.store.MoviesOf(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *Suite) TestConcurrentAddActorCreatesOnce() {
	const n = 32
	var created atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.AddActor(s.ctx, fmt.Sprintf("caller %d", i), "nmRace")
			if err != nil {
				errs <- err
				return
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(int32(1), created.Load())

	actor, err := s.store.GetActor(s.ctx, "nmRace")
	s.Require().NoError(err)
	s.NotNil(actor)
}

func (s *Suite) TestConcurrentAddRelationshipCreatesOnce() {
	s.addActor("A", "nmA")
	s.addMovie("M", "ttM")

	const n = 16
	var created atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.store.AddRelationship(s.ctx, "nmA", "ttM")
			if err != nil {
				errs <- err
				return
			}
			if outcome.Created() {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(int32(1), created.Load())
}

func (s *Suite) TestConcurrentUnrelatedWrites() {
	const n = 24
	var wg sync.WaitGroup
	errs := make(chan error, 3*n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actorID := fmt.Sprintf("nm%04d", i)
			movieID := fmt.Sprintf("tt%04d", i)
			if _, err := s.store.AddActor(s.ctx, "actor", actorID); err != nil {
				errs <- err
				return
			}
			if _, err := s.store.AddMovie(s.ctx, "movie", movieID); err != nil {
				errs <- err
				return
			}
			outcome, err := s.store.AddRelationship(s.ctx, actorID, movieID)
			if err != nil {
				errs <- err
				return
			}
			if !outcome.Created() {
				errs <- fmt.Errorf("%s -> %s: %s", actorID, movieID, outcome)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("nm%04d", i)
	}
	movies, err := s.store.MoviesOf(s.ctx, ids)
	s.Require().NoError(err)
	s.Len(movies, n)
}

func (s *Suite) TestReset() {
	s.addActor("A", "nmA")
	s.addMovie("M", "ttM")
	s.link("nmA", "ttM")

	s.Require().NoError(s.store.Reset(s.ctx))

	actor, err := s.store.GetActor(s.ctx, "nmA")
	s.Require().NoError(err)
	s.Nil(actor)
	movie, err := s.store.GetMovie(s.ctx, "ttM")
	s.Require().NoError(err)
	s.Nil(movie)
	has, err := s.store.HasRelationship(s.ctx, "nmA", "ttM")
	s.Require().NoError(err)
	s.False(has)

	// The graph is usable again after a reset.
	s.addActor("A", "nmA")
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *Suite) TestCanceledContextIsStoreError() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.store.AddActor(ctx, "A", "nmCanceled")
	s.Require().Error(err)
	s.True(graphstore.IsStoreError(err), "got %T: %v", err, err)
}
