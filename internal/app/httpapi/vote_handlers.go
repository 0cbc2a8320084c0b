package httpapi

import (
	"fmt"
	"net/http"

	"github.com/campusvote/campusvote/internal/domain"
)

type castVoteRequest struct {
	CandidateID string `json:"candidate_id" validate:"required"`
}

func (a *API) handleCastVote(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))
	var req castVoteRequest
	if !decodeBody(w, r, &req) || !a.validateBody(w, req) {
		return
	}

	actor := actorFrom(r.Context())
	vote, err := a.ballots.Cast(r.Context(), actor, electionID, domain.CandidateID(req.CandidateID))
	if err != nil {
		a.logger.Warn("vote refused", "err", err, "election", electionID, "voter", actor.ID)
		respondError(w, err)
		return
	}

	a.logger.Info("vote accepted", "election", electionID, "vote", vote.ID)
	respondJSON(w, http.StatusCreated, vote)
}

func (a *API) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))

	status, err := a.ballots.Status(r.Context(), actorFrom(r.Context()), electionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

type tallyResponse struct {
	Entries []domain.TallyEntry `json:"entries"`
	Total   int64               `json:"total"`
}

func (a *API) handleTally(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))

	entries, total, err := a.tallies.Results(r.Context(), actorFrom(r.Context()), electionID)
	if err != nil {
		a.logger.Error("compute tally", "err", err, "election", electionID)
		respondError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.TallyEntry{}
	}
	respondJSON(w, http.StatusOK, tallyResponse{Entries: entries, Total: total})
}

func (a *API) handleLiveTally(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))

	entries, total, err := a.tallies.Live(r.Context(), actorFrom(r.Context()), electionID)
	if err != nil {
		a.logger.Error("read live tally", "err", err, "election", electionID)
		respondError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.TallyEntry{}
	}
	respondJSON(w, http.StatusOK, tallyResponse{Entries: entries, Total: total})
}

func (a *API) handleExportTally(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))

	csvBytes, err := a.tallies.ExportCSV(r.Context(), actorFrom(r.Context()), electionID)
	if err != nil {
		a.logger.Error("export tally", "err", err, "election", electionID)
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("tally-%s.csv", electionID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csvBytes)
}
