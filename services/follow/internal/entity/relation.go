package entity

// Relations is a follower, following or pending list of a user. Stale is
// set when the contract could not be reached and the cached copy is served.
type Relations struct {
	User  string   `json:"user"`
	Users []string `json:"users"`
	Count int      `json:"count"`
	Stale bool     `json:"stale"`
}

// FollowRequest is a request of From to follow To.
type FollowRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Accepted bool   `json:"accepted"`
}
