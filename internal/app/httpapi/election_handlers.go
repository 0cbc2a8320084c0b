package httpapi

import (
	"net/http"
	"time"

	"github.com/campusvote/campusvote/internal/domain"
)

type candidatePayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type createElectionRequest struct {
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Anonymous   bool               `json:"anonymous"`
	StartsAt    *time.Time         `json:"starts_at"`
	EndsAt      *time.Time         `json:"ends_at"`
	Candidates  []candidatePayload `json:"candidates" validate:"required,min=2,dive"`
}

func (a *API) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if !decodeBody(w, r, &req) || !a.validateBody(w, req) {
		return
	}

	election := domain.Election{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.ElectionStatus(req.Status),
		Anonymous:   req.Anonymous,
	}
	if req.StartsAt != nil {
		election.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		election.EndsAt = *req.EndsAt
	}

	candidates := make([]domain.Candidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		candidates = append(candidates, domain.Candidate{
			Name:        c.Name,
			Description: c.Description,
			ImageURL:    c.ImageURL,
		})
	}

	created, err := a.elections.Create(r.Context(), actorFrom(r.Context()), election, candidates)
	if err != nil {
		a.logger.Warn("create election refused", "err", err)
		respondError(w, err)
		return
	}

	a.logger.Info("election created", "election", created.ID)
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := a.elections.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		a.logger.Error("list elections", "err", err)
		respondError(w, err)
		return
	}
	if elections == nil {
		elections = []domain.Election{}
	}
	respondJSON(w, http.StatusOK, elections)
}

func (a *API) handleGetElection(w http.ResponseWriter, r *http.Request) {
	id := domain.ElectionID(r.PathValue("id"))

	election, err := a.elections.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, election)
}

type updateElectionRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Anonymous   *bool      `json:"anonymous"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (a *API) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	id := domain.ElectionID(r.PathValue("id"))
	var req updateElectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := domain.ElectionUpdate{
		Title:       req.Title,
		Description: req.Description,
		Anonymous:   req.Anonymous,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if req.Status != nil {
		status := domain.ElectionStatus(*req.Status)
		upd.Status = &status
	}

	updated, err := a.elections.Update(r.Context(), actorFrom(r.Context()), id, upd)
	if err != nil {
		a.logger.Warn("update election refused", "err", err, "election", id)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteElection(w http.ResponseWriter, r *http.Request) {
	id := domain.ElectionID(r.PathValue("id"))

	if err := a.elections.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		a.logger.Warn("delete election refused", "err", err, "election", id)
		respondError(w, err)
		return
	}
	a.logger.Info("election deleted", "election", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	id := domain.ElectionID(r.PathValue("id"))

	candidates, err := a.elections.ListCandidates(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	respondJSON(w, http.StatusOK, candidates)
}

func (a *API) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	id := domain.ElectionID(r.PathValue("id"))
	var req candidatePayload
	if !decodeBody(w, r, &req) || !a.validateBody(w, req) {
		return
	}

	candidate, err := a.elections.AddCandidate(r.Context(), actorFrom(r.Context()), id, domain.Candidate{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		a.logger.Warn("add candidate refused", "err", err, "election", id)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, candidate)
}

type updateCandidateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

func (a *API) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := domain.CandidateID(r.PathValue("id"))
	var req updateCandidateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidate, err := a.elections.UpdateCandidate(r.Context(), actorFrom(r.Context()), id, req.Name, req.Description, req.ImageURL)
	if err != nil {
		a.logger.Warn("update candidate refused", "err", err, "candidate", id)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, candidate)
}

func (a *API) handleRemoveCandidate(w http.ResponseWriter, r *http.Request) {
	id := domain.CandidateID(r.PathValue("id"))

	if err := a.elections.RemoveCandidate(r.Context(), actorFrom(r.Context()), id); err != nil {
		a.logger.Warn("remove candidate refused", "err", err, "candidate", id)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
