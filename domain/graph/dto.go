package graph

// Requests bind from a JSON body or, for GET, from the query string.

type AddActorRequest struct {
	Name    string `json:"name" query:"name"`
	ActorID string `json:"actorId" query:"actorId"`
}

type AddMovieRequest struct {
	Name    string `json:"name" query:"name"`
	MovieID string `json:"movieId" query:"movieId"`
}

type RelationshipRequest struct {
	ActorID string `json:"actorId" query:"actorId"`
	MovieID string `json:"movieId" query:"movieId"`
}

type ActorRequest struct {
	ActorID string `json:"actorId" query:"actorId"`
}

type MovieRequest struct {
	MovieID string `json:"movieId" query:"movieId"`
}

// ActorResponse is an actor with the movies they acted in.
type ActorResponse struct {
	ActorID string   `json:"actorId"`
	Name    string   `json:"name"`
	Movies  []string `json:"movies"`
}

// MovieResponse is a movie with its cast.
type MovieResponse struct {
	MovieID string   `json:"movieId"`
	Name    string   `json:"name"`
	Actors  []string `json:"actors"`
}

type RelationshipResponse struct {
	ActorID         string `json:"actorId"`
	MovieID         string `json:"movieId"`
	HasRelationship bool   `json:"hasRelationship"`
}
