package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterVoterRequest struct {
	VoterID    string `json:"voter_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

type VoterResponse struct {
	VoterID    string    `json:"voter_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Department string    `json:"department,omitempty"`
	HasSession bool      `json:"has_session"`
	CreatedAt  time.Time `json:"created_at"`
}

type IssueSessionRequest struct {
	VoterID string `json:"voter_id"`
}

type SessionTokenResponse struct {
	VoterID      string `json:"voter_id"`
	SessionToken string `json:"session_token"`
}

type ValidateSessionRequest struct {
	SessionToken string `json:"session_token"`
}

type SessionResponse struct {
	VoterID    string `json:"voter_id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
}

type CreateElectionRequest struct {
	ElectionID string `json:"election_id"`
	Title      string `json:"title"`
}

type ElectionResponse struct {
	ElectionID       string     `json:"election_id"`
	Title            string     `json:"title"`
	IsActive         bool       `json:"is_active"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	StartedBlock     *uint64    `json:"started_block,omitempty"`
	EndedBlock       *uint64    `json:"ended_block,omitempty"`
	ResultsPublished bool       `json:"results_published"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}

type AddCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
}

type CandidateResponse struct {
	CandidateID string `json:"candidate_id"`
	ElectionID  string `json:"election_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
}

type CandidateListResponse struct {
	Items []CandidateResponse `json:"items"`
}

type LifecycleResponse struct {
	ElectionID  string `json:"election_id"`
	BlockNumber uint64 `json:"block_number"`
}

type CastVoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
}

type CastVoteResponse struct {
	ElectionID      string `json:"election_id"`
	ConfirmationRef string `json:"confirmation_ref"`
	BlockNumber     uint64 `json:"block_number"`
}

type TallyItem struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
	Votes       uint64 `json:"votes"`
}

type ResultsResponse struct {
	ElectionID  string      `json:"election_id"`
	Source      string      `json:"source"`
	Results     []TallyItem `json:"results"`
	FromBlock   uint64      `json:"from_block"`
	ToBlock     uint64      `json:"to_block"`
	GeneratedAt time.Time   `json:"generated_at"`
}

type PublishedElectionsResponse struct {
	Items []ElectionResponse `json:"items"`
}
