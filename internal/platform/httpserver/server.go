package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	voteledgerengine "evote/contexts/election-operations/vote-ledger-engine"
	engineerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	enginehttp "evote/contexts/election-operations/vote-ledger-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "evote/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	engine voteledgerengine.Module
}

func New(engine voteledgerengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		engine: engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/voters", s.handleRegisterVoter)
	s.mux.HandleFunc("POST /api/voters/{voter_id}/session", s.handleIssueSession)
	s.mux.HandleFunc("POST /api/voters/validate-session", s.handleValidateSession)

	s.mux.HandleFunc("POST /api/elections", s.handleCreateElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/candidates", s.handleAddCandidate)
	s.mux.HandleFunc("GET /api/elections/{election_id}/candidates", s.handleListCandidates)
	s.mux.HandleFunc("POST /api/elections/{election_id}/start", s.handleStartElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/end", s.handleEndElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/cast", s.handleCastVote)

	s.mux.HandleFunc("POST /api/results/publish/{election_id}", s.handlePublishResults)
	s.mux.HandleFunc("GET /api/results/public-elections", s.handlePublicElections)
	s.mux.HandleFunc("GET /api/results/public/{election_id}", s.handlePublicResults)
	s.mux.HandleFunc("GET /api/results/{election_id}/audit", s.handleAuditRecount)
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	var req enginehttp.RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.RegisterVoterHandler(r.Context(), principal, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminPrincipal(w, r); !ok {
		return
	}
	resp, err := s.engine.Handler.IssueSessionHandler(r.Context(), enginehttp.IssueSessionRequest{
		VoterID: r.PathValue("voter_id"),
	})
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.ValidateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.ValidateSessionHandler(r.Context(), req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	var req enginehttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CreateElectionHandler(r.Context(), principal, req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	var req enginehttp.AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.AddCandidateHandler(r.Context(), principal, r.PathValue("election_id"), req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.ListCandidatesHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartElection(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	resp, err := s.engine.Handler.StartElectionHandler(r.Context(), principal, r.PathValue("election_id"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndElection(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	resp, err := s.engine.Handler.EndElectionHandler(r.Context(), principal, r.PathValue("election_id"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CastVoteHandler(r.Context(), r.PathValue("election_id"), req)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublishResults(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	force := strings.EqualFold(r.URL.Query().Get("force"), "true")
	resp, err := s.engine.Handler.PublishResultsHandler(r.Context(), principal, r.PathValue("election_id"), force)
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.PublicElectionsHandler(r.Context())
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.PublicResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuditRecount(w http.ResponseWriter, r *http.Request) {
	principal, ok := adminPrincipal(w, r)
	if !ok {
		return
	}
	resp, err := s.engine.Handler.AuditRecountHandler(r.Context(), principal, r.PathValue("election_id"))
	if err != nil {
		writeEngineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeEngineDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engineerrors.ErrVoterNotFound):
		writeEngineError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrElectionNotFound):
		writeEngineError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrCandidateNotFound):
		writeEngineError(w, http.StatusNotFound, "candidate_not_found", err.Error())
	case errors.Is(err, engineerrors.ErrResultsNotPublished):
		writeEngineError(w, http.StatusNotFound, "results_not_published", err.Error())
	case errors.Is(err, engineerrors.ErrVoterExists),
		errors.Is(err, engineerrors.ErrElectionExists),
		errors.Is(err, engineerrors.ErrCandidateExists):
		writeEngineError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, engineerrors.ErrAlreadyVoted),
		errors.Is(err, engineerrors.ErrDuplicateVote):
		writeEngineError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, engineerrors.ErrVoteInProgress):
		writeEngineError(w, http.StatusConflict, "vote_in_progress", err.Error())
	case errors.Is(err, engineerrors.ErrPublishInProgress):
		writeEngineError(w, http.StatusConflict, "publish_in_progress", err.Error())
	case errors.Is(err, engineerrors.ErrAlreadyStarted):
		writeEngineError(w, http.StatusConflict, "already_started", err.Error())
	case errors.Is(err, engineerrors.ErrAlreadyPublished):
		writeEngineError(w, http.StatusConflict, "already_published", err.Error())
	case errors.Is(err, engineerrors.ErrCandidatesFrozen):
		writeEngineError(w, http.StatusConflict, "candidates_frozen", err.Error())
	case errors.Is(err, engineerrors.ErrSessionConsumed):
		writeEngineError(w, http.StatusConflict, "session_consumed", err.Error())
	case errors.Is(err, engineerrors.ErrElectionNotActive),
		errors.Is(err, engineerrors.ErrElectionStillActive),
		errors.Is(err, engineerrors.ErrResultsPublished),
		errors.Is(err, engineerrors.ErrInvalidCandidate),
		errors.Is(err, engineerrors.ErrBlockRangeMissing):
		writeEngineError(w, http.StatusUnprocessableEntity, "precondition_failed", err.Error())
	case errors.Is(err, engineerrors.ErrInvalidInput):
		writeEngineError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, engineerrors.ErrUnauthorized):
		writeEngineError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, engineerrors.ErrLedgerUnreachable):
		writeEngineError(w, http.StatusServiceUnavailable, "ledger_unreachable", err.Error())
	case errors.Is(err, engineerrors.ErrSubmissionFailed):
		writeEngineError(w, http.StatusBadGateway, "submission_failed", err.Error())
	case errors.Is(err, engineerrors.ErrSubmissionUncertain):
		// The vote may still land. The client must not resubmit; an
		// operator resolves the outcome against the ledger.
		writeEngineError(w, http.StatusGatewayTimeout, "submission_uncertain", err.Error())
	default:
		writeEngineError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func adminPrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal := strings.TrimSpace(r.Header.Get("X-Admin-Id"))
	if principal == "" {
		writeEngineError(w, http.StatusUnauthorized, "missing_admin", "X-Admin-Id header is required")
		return "", false
	}
	return principal, true
}

func writeEngineError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enginehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
