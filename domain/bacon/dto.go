package bacon

type ActorRequest struct {
	ActorID string `json:"actorId" query:"actorId"`
}

type NumberResponse struct {
	BaconNumber int `json:"baconNumber"`
}

// PathResponse lists the actors of the path from the reference actor to the
// queried one, with the movies linking each consecutive pair.
type PathResponse struct {
	BaconNumber int      `json:"baconNumber"`
	BaconPath   []string `json:"baconPath"`
	Movies      []string `json:"movies"`
	Steps       []Step   `json:"steps"`
}
