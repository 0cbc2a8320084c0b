// Package elections manages the election lifecycle and its candidate
// roster. Every mutation is admin-only; reads are filtered by role so
// voters only ever see open elections.
package elections

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
)

const minCandidates = 2

type Service struct {
	elections  domain.ElectionRepository
	candidates domain.CandidateRepository
	votes      domain.VoteRepository
	audit      domain.AuditTrail
	clock      domain.Clock
	ids        *ids.Generator
}

func NewService(
	elections domain.ElectionRepository,
	candidates domain.CandidateRepository,
	votes domain.VoteRepository,
	audit domain.AuditTrail,
	clock domain.Clock,
	idsGen *ids.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		audit:      audit,
		clock:      clock,
		ids:        idsGen,
	}
}

// Create stores the election and its initial roster in one transaction.
// Elections start as drafts unless the caller names another status.
func (s *Service) Create(ctx context.Context, actor domain.Actor, e domain.Election, candidates []domain.Candidate) (domain.Election, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Election{}, err
	}

	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return domain.Election{}, fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if len(candidates) < minCandidates {
		return domain.Election{}, fmt.Errorf("an election needs at least %d candidates: %w", minCandidates, domain.ErrValidation)
	}
	if e.Status == "" {
		e.Status = domain.StatusDraft
	}
	if !validStatus(e.Status) {
		return domain.Election{}, fmt.Errorf("unknown status %q: %w", e.Status, domain.ErrValidation)
	}
	if !e.StartsAt.IsZero() && !e.EndsAt.IsZero() && !e.EndsAt.After(e.StartsAt) {
		return domain.Election{}, fmt.Errorf("ends_at must be after starts_at: %w", domain.ErrValidation)
	}

	now := s.clock.Now()
	e.ID = domain.ElectionID(s.ids.New())
	e.CreatedBy = actor.ID
	e.CreatedAt = now
	e.UpdatedAt = now

	for i := range candidates {
		candidates[i].Name = strings.TrimSpace(candidates[i].Name)
		if candidates[i].Name == "" {
			return domain.Election{}, fmt.Errorf("candidate %d needs a name: %w", i+1, domain.ErrValidation)
		}
		candidates[i].ID = domain.CandidateID(s.ids.New())
		candidates[i].ElectionID = e.ID
		candidates[i].CreatedAt = now
		candidates[i].UpdatedAt = now
	}

	if err := s.elections.Create(ctx, e, candidates); err != nil {
		return domain.Election{}, err
	}
	e.Candidates = candidates

	if s.audit != nil {
		s.audit.Record(ctx, actor, "election.created", map[string]any{
			"election_id": string(e.ID),
			"title":       e.Title,
			"candidates":  len(candidates),
		})
	}

	return e, nil
}

// List returns every election for admins and only open ones for voters.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Election, error) {
	if actor.IsAdmin() {
		return s.elections.List(ctx)
	}
	return s.elections.List(ctx, domain.StatusActive)
}

// Get hides drafts and closed elections from non-admins entirely, so a
// voter cannot probe whether an unpublished election exists.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.ElectionID) (domain.Election, error) {
	e, err := s.elections.FindByID(ctx, id)
	if err != nil {
		return domain.Election{}, err
	}
	if !actor.IsAdmin() && e.Status != domain.StatusActive {
		return domain.Election{}, fmt.Errorf("election %s is not open: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

// Update applies the set fields of upd. Status moves are admin decisions
// and are not constrained to a fixed order, so a closed election can be
// reopened for a recount.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id domain.ElectionID, upd domain.ElectionUpdate) (domain.Election, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Election{}, err
	}

	e, err := s.elections.FindByID(ctx, id)
	if err != nil {
		return domain.Election{}, err
	}
	previousStatus := e.Status

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return domain.Election{}, fmt.Errorf("title cannot be blank: %w", domain.ErrValidation)
		}
		e.Title = title
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return domain.Election{}, fmt.Errorf("unknown status %q: %w", *upd.Status, domain.ErrValidation)
		}
		e.Status = *upd.Status
	}
	if upd.Anonymous != nil {
		e.Anonymous = *upd.Anonymous
	}
	if upd.StartsAt != nil {
		e.StartsAt = *upd.StartsAt
	}
	if upd.EndsAt != nil {
		e.EndsAt = *upd.EndsAt
	}
	if !e.StartsAt.IsZero() && !e.EndsAt.IsZero() && !e.EndsAt.After(e.StartsAt) {
		return domain.Election{}, fmt.Errorf("ends_at must be after starts_at: %w", domain.ErrValidation)
	}

	e.UpdatedAt = s.clock.Now()
	if err := s.elections.Update(ctx, e); err != nil {
		return domain.Election{}, err
	}

	if s.audit != nil {
		action := "election.updated"
		if e.Status == domain.StatusClosed && previousStatus != domain.StatusClosed {
			action = "election.closed"
		}
		s.audit.Record(ctx, actor, action, map[string]any{
			"election_id": string(id),
			"status":      string(e.Status),
		})
	}

	return e, nil
}

// Delete removes the election together with its candidates and votes.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.ElectionID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.elections.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actor, "election.deleted", map[string]any{"election_id": string(id)})
	}
	return nil
}

func (s *Service) ListCandidates(ctx context.Context, actor domain.Actor, id domain.ElectionID) ([]domain.Candidate, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.candidates.ListByElection(ctx, id)
}

func (s *Service) AddCandidate(ctx context.Context, actor domain.Actor, id domain.ElectionID, c domain.Candidate) (domain.Candidate, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Candidate{}, err
	}
	if _, err := s.elections.FindByID(ctx, id); err != nil {
		return domain.Candidate{}, err
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Candidate{}, fmt.Errorf("candidate name is required: %w", domain.ErrValidation)
	}

	now := s.clock.Now()
	c.ID = domain.CandidateID(s.ids.New())
	c.ElectionID = id
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.candidates.Create(ctx, c); err != nil {
		return domain.Candidate{}, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, actor, "candidate.added", map[string]any{
			"election_id":  string(id),
			"candidate_id": string(c.ID),
			"name":         c.Name,
		})
	}

	return c, nil
}

func (s *Service) UpdateCandidate(ctx context.Context, actor domain.Actor, id domain.CandidateID, name, description, imageURL *string) (domain.Candidate, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Candidate{}, err
	}

	c, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return domain.Candidate{}, fmt.Errorf("candidate name cannot be blank: %w", domain.ErrValidation)
		}
		c.Name = trimmed
	}
	if description != nil {
		c.Description = *description
	}
	if imageURL != nil {
		c.ImageURL = *imageURL
	}

	c.UpdatedAt = s.clock.Now()
	if err := s.candidates.Update(ctx, c); err != nil {
		return domain.Candidate{}, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, actor, "candidate.updated", map[string]any{
			"election_id":  string(c.ElectionID),
			"candidate_id": string(id),
		})
	}

	return c, nil
}

// RemoveCandidate refuses to drop a candidate that already holds votes,
// and refuses to shrink the roster below the minimum.
func (s *Service) RemoveCandidate(ctx context.Context, actor domain.Actor, id domain.CandidateID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	c, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return err
	}

	counts, err := s.votes.CountByCandidate(ctx, c.ElectionID)
	if err != nil {
		return err
	}
	if counts[id] > 0 {
		return fmt.Errorf("candidate %s already has votes: %w", id, domain.ErrValidation)
	}

	roster, err := s.candidates.ListByElection(ctx, c.ElectionID)
	if err != nil {
		return err
	}
	if len(roster) <= minCandidates {
		return fmt.Errorf("an election needs at least %d candidates: %w", minCandidates, domain.ErrValidation)
	}

	if err := s.candidates.Delete(ctx, id); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, actor, "candidate.removed", map[string]any{
			"election_id":  string(c.ElectionID),
			"candidate_id": string(id),
		})
	}

	return nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can manage elections: %w", domain.ErrPermissionDenied)
	}
	return nil
}

func validStatus(status domain.ElectionStatus) bool {
	switch status {
	case domain.StatusDraft, domain.StatusActive, domain.StatusClosed:
		return true
	}
	return false
}

var _ domain.ElectionService = (*Service)(nil)
