// Package httpapi exposes the REST surface and translates HTTP requests
// into service calls.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/throttle"
)

// API bundles the HTTP handlers with the services they front.
type API struct {
	identity  domain.IdentityService
	elections domain.ElectionService
	ballots   domain.BallotService
	tallies   domain.TallyService
	audits    domain.AuditService
	feed      domain.BallotFeed
	logger    *slog.Logger
	validate  *validator.Validate
}

func New(
	identity domain.IdentityService,
	elections domain.ElectionService,
	ballots domain.BallotService,
	tallies domain.TallyService,
	audits domain.AuditService,
	feed domain.BallotFeed,
	logger *slog.Logger,
) *API {
	return &API{
		identity:  identity,
		elections: elections,
		ballots:   ballots,
		tallies:   tallies,
		audits:    audits,
		feed:      feed,
		logger:    logger,
		validate:  validator.New(),
	}
}

// Register wires every route on the mux. Routes stay centralized so tests
// and alternative servers mount the same surface.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("POST /auth/register", a.handleRegister)
	mux.HandleFunc("POST /auth/login", a.handleLogin)
	mux.HandleFunc("POST /auth/logout", a.authenticated(a.handleLogout))

	mux.HandleFunc("GET /elections", a.authenticated(a.handleListElections))
	mux.HandleFunc("POST /elections", a.authenticated(a.handleCreateElection))
	mux.HandleFunc("GET /elections/{id}", a.authenticated(a.handleGetElection))
	mux.HandleFunc("PATCH /elections/{id}", a.authenticated(a.handleUpdateElection))
	mux.HandleFunc("DELETE /elections/{id}", a.authenticated(a.handleDeleteElection))

	mux.HandleFunc("GET /elections/{id}/candidates", a.authenticated(a.handleListCandidates))
	mux.HandleFunc("POST /elections/{id}/candidates", a.authenticated(a.handleAddCandidate))
	mux.HandleFunc("PATCH /candidates/{id}", a.authenticated(a.handleUpdateCandidate))
	mux.HandleFunc("DELETE /candidates/{id}", a.authenticated(a.handleRemoveCandidate))

	mux.HandleFunc("POST /elections/{id}/votes", a.authenticated(a.handleCastVote))
	mux.HandleFunc("GET /elections/{id}/votes/me", a.authenticated(a.handleVoteStatus))

	mux.HandleFunc("GET /elections/{id}/tally", a.authenticated(a.handleTally))
	mux.HandleFunc("GET /elections/{id}/tally/live", a.authenticated(a.handleLiveTally))
	mux.HandleFunc("GET /elections/{id}/tally/export", a.authenticated(a.handleExportTally))

	mux.HandleFunc("GET /elections/{id}/events", a.authenticated(a.handleElectionEvents))

	mux.HandleFunc("GET /audit", a.authenticated(a.handleAuditLog))
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps domain sentinels to status codes. Classes whose
// wrapped text may carry storage detail answer with a fixed message
// instead of the error string.
func respondError(w http.ResponseWriter, err error) {
	status := statusCodeFor(err)

	message := err.Error()
	switch status {
	case http.StatusUnauthorized:
		message = "invalid credentials"
	case http.StatusNotFound:
		message = "not found"
	case http.StatusInternalServerError:
		message = "internal error"
	case http.StatusBadGateway:
		message = "a backing service is unavailable"
	}

	respondJSON(w, status, map[string]string{"error": message})
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateVote):
		return http.StatusConflict
	case errors.Is(err, throttle.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) validateBody(w http.ResponseWriter, body any) bool {
	err := a.validate.Struct(body)
	if err == nil {
		return true
	}

	fields := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			fields[fieldErr.Field()] = "failed " + fieldErr.Tag() + " validation"
		}
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "fields": fields})
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}
