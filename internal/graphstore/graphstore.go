// Package graphstore defines the actor/movie graph contract and its in-memory backend.
//
// Identity is exact string match throughout. Business outcomes (already exists,
// missing endpoint, not found) are return values; only infrastructure failures
// come back as errors, always as *StoreError.
package graphstore

import "context"

// Actor is an actor node.
type Actor struct {
	ID   string `json:"actorId" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Movie is a movie node.
type Movie struct {
	ID   string `json:"movieId" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Store owns actor and movie nodes and the ACTED_IN edges between them.
// Implementations are safe for concurrent use.
type Store interface {
	// AddActor creates the actor unless actorID already exists.
	// It reports whether this call created it.
	AddActor(ctx context.Context, name, actorID string) (bool, error)
	// AddMovie is AddActor for movies.
	AddMovie(ctx context.Context, name, movieID string) (bool, error)
	// AddRelationship creates the ACTED_IN edge when both endpoints exist and
	// the edge does not.
	AddRelationship(ctx context.Context, actorID, movieID string) (LinkOutcome, error)

	// GetActor returns nil, nil when the actor does not exist.
	GetActor(ctx context.Context, actorID string) (*Actor, error)
	// GetMovie returns nil, nil when the movie does not exist.
	GetMovie(ctx context.Context, movieID string) (*Movie, error)
	// HasRelationship reports whether the edge exists. A missing endpoint is
	// simply false.
	HasRelationship(ctx context.Context, actorID, movieID string) (bool, error)

	// MoviesOf returns the movies of each given actor. Actors without movies,
	// or that do not exist, are absent from the map. Slices are sorted.
	MoviesOf(ctx context.Context, actorIDs []string) (map[string][]string, error)
	// ActorsIn returns the cast of each given movie, with the same conventions
	// as MoviesOf.
	ActorsIn(ctx context.Context, movieIDs []string) (map[string][]string, error)

	// Reset deletes every node and edge. It waits for in-flight operations.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// LinkOutcome is the result of AddRelationship.
type LinkOutcome int

const (
	LinkCreated LinkOutcome = iota
	LinkExists
	LinkMissingActor
	LinkMissingMovie
	LinkMissingBoth
)

// MissingLink returns the outcome for a relationship whose endpoints are not
// both present. It returns LinkExists when both are present, which callers
// only reach when the edge was already there.
func MissingLink(actorExists, movieExists bool) LinkOutcome {
	switch {
	case !actorExists && !movieExists:
		return LinkMissingBoth
	case !actorExists:
		return LinkMissingActor
	case !movieExists:
		return LinkMissingMovie
	default:
		return LinkExists
	}
}

// Created reports whether the edge was created by this call.
func (o LinkOutcome) Created() bool { return o == LinkCreated }

// MissingEndpoint reports whether the edge was refused because an endpoint is absent.
func (o LinkOutcome) MissingEndpoint() bool {
	return o == LinkMissingActor || o == LinkMissingMovie || o == LinkMissingBoth
}

// ActorExists reports whether the actor endpoint was present.
func (o LinkOutcome) ActorExists() bool {
	return o != LinkMissingActor && o != LinkMissingBoth
}

// MovieExists reports whether the movie endpoint was present.
func (o LinkOutcome) MovieExists() bool {
	return o != LinkMissingMovie && o != LinkMissingBoth
}

func (o LinkOutcome) String() string {
	switch o {
	case LinkCreated:
		return "created"
	case LinkExists:
		return "exists"
	case LinkMissingActor:
		return "missing_actor"
	case LinkMissingMovie:
		return "missing_movie"
	case LinkMissingBoth:
		return "missing_both"
	default:
		return "unknown"
	}
}
