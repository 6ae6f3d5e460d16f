package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	voteledgerengine "evote/contexts/election-operations/vote-ledger-engine"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	enginehttp "evote/contexts/election-operations/vote-ledger-engine/transport/http"
)

func newTestServer(t *testing.T) (*Server, voteledgerengine.Module) {
	t.Helper()
	engine := voteledgerengine.NewInMemoryModule([]string{"admin-1"}, nil)
	return New(engine, nil, ":0"), engine
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, admin string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if admin != "" {
		req.Header.Set("X-Admin-Id", admin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestElectionFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/voters", "admin-1", enginehttp.RegisterVoterRequest{
		VoterID: "voter-1", Name: "Ada",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register voter: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections", "admin-1", enginehttp.CreateElectionRequest{
		ElectionID: "election-1", Title: "Board Election",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create election: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/candidates", "admin-1", enginehttp.AddCandidateRequest{
		CandidateID: "candidate-1", Name: "Grace",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add candidate: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/start", "admin-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start election: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/cast", "", enginehttp.CastVoteRequest{
		VoterID: "voter-1", CandidateID: "candidate-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cast: status %d, body %s", rec.Code, rec.Body.String())
	}
	var castResp enginehttp.CastVoteResponse
	decodeInto(t, rec, &castResp)
	if castResp.ConfirmationRef == "" {
		t.Fatal("expected confirmation reference")
	}

	// Second cast by the same voter is a conflict.
	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/cast", "", enginehttp.CastVoteRequest{
		VoterID: "voter-1", CandidateID: "candidate-1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate cast: status %d, want 409", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/end", "admin-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end election: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/results/publish/election-1", "admin-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: status %d, body %s", rec.Code, rec.Body.String())
	}
	var published enginehttp.ResultsResponse
	decodeInto(t, rec, &published)
	if published.Source != "ledger-verified" {
		t.Fatalf("Source = %q, want ledger-verified", published.Source)
	}
	if len(published.Results) != 1 || published.Results[0].Votes != 1 {
		t.Fatalf("unexpected tallies: %+v", published.Results)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/results/public/election-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public results: status %d, body %s", rec.Code, rec.Body.String())
	}
	var cached enginehttp.ResultsResponse
	decodeInto(t, rec, &cached)
	if cached.Source != "cached" {
		t.Fatalf("Source = %q, want cached", cached.Source)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/results/public-elections", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public elections: status %d", rec.Code)
	}
	var listed enginehttp.PublishedElectionsResponse
	decodeInto(t, rec, &listed)
	if len(listed.Items) != 1 || listed.Items[0].ElectionID != "election-1" {
		t.Fatalf("unexpected published list: %+v", listed.Items)
	}
}

func TestAdminEndpointsRequireHeader(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/elections", "", enginehttp.CreateElectionRequest{
		ElectionID: "election-1", Title: "Board Election",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status %d, want 401", rec.Code)
	}

	// A present but unknown principal is rejected by the authorizer.
	rec = doJSON(t, handler, http.MethodPost, "/api/elections", "stranger", enginehttp.CreateElectionRequest{
		ElectionID: "election-1", Title: "Board Election",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unknown principal: status %d, want 403", rec.Code)
	}
}

func TestDomainErrorsMapToStatusCodes(t *testing.T) {
	server, engine := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/results/public/election-404", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown election: status %d, want 404", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections", "admin-1", enginehttp.CreateElectionRequest{
		ElectionID: "election-1", Title: "Board Election",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create election: status %d", rec.Code)
	}

	// Unpublished but known election.
	rec = doJSON(t, handler, http.MethodGet, "/api/results/public/election-1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unpublished results: status %d, want 404", rec.Code)
	}
	var errResp enginehttp.ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "results_not_published" {
		t.Fatalf("error code %q, want results_not_published", errResp.Code)
	}

	// Voting against a created but unstarted election is a precondition
	// failure, not a missing resource.
	if err := engine.Store.CreateVoter(context.Background(), entities.Voter{VoterID: "voter-1", Name: "Ada"}); err != nil {
		t.Fatalf("seed voter: %v", err)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/elections/election-1/cast", "", enginehttp.CastVoteRequest{
		VoterID: "voter-1", CandidateID: "candidate-1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("cast before start: status %d, want 422", rec.Code)
	}
}
