// Package ballot is the integrity-critical vote path. A ballot is
// accepted or refused by the storage layer's unique index, never by a
// check-then-insert, so concurrent duplicates always collapse to one
// recorded vote.
package ballot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
	"github.com/campusvote/campusvote/internal/platform/logger"
	"github.com/campusvote/campusvote/internal/platform/metrics"
)

type Service struct {
	elections  domain.ElectionRepository
	candidates domain.CandidateRepository
	votes      domain.VoteRepository
	feed       domain.BallotFeed
	audit      domain.AuditTrail
	clock      domain.Clock
	ids        *ids.Generator
}

func NewService(
	elections domain.ElectionRepository,
	candidates domain.CandidateRepository,
	votes domain.VoteRepository,
	feed domain.BallotFeed,
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
		feed:       feed,
		audit:      audit,
		clock:      clock,
		ids:        idsGen,
	}
}

// Cast records one vote for the actor in the given election. The insert
// either commits or surfaces domain.ErrDuplicateVote; everything that
// happens afterwards (feed publish, audit) is best-effort and never
// undoes the committed ballot.
func (s *Service) Cast(ctx context.Context, actor domain.Actor, electionID domain.ElectionID, candidateID domain.CandidateID) (domain.Vote, error) {
	if actor.ID == "" {
		metrics.ObserveVoteRequest("rejected")
		return domain.Vote{}, fmt.Errorf("a vote needs an authenticated voter: %w", domain.ErrPermissionDenied)
	}

	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		metrics.ObserveVoteRequest("rejected")
		return domain.Vote{}, err
	}
	if election.Status != domain.StatusActive {
		metrics.ObserveVoteRequest("rejected")
		return domain.Vote{}, fmt.Errorf("election %s is not open for voting: %w", electionID, domain.ErrValidation)
	}

	candidate, err := s.candidates.FindByID(ctx, candidateID)
	if err != nil {
		metrics.ObserveVoteRequest("rejected")
		return domain.Vote{}, err
	}
	if candidate.ElectionID != electionID {
		metrics.ObserveVoteRequest("rejected")
		return domain.Vote{}, fmt.Errorf("candidate %s does not run in election %s: %w", candidateID, electionID, domain.ErrNotFound)
	}

	vote := domain.Vote{
		ID:          domain.VoteID(s.ids.New()),
		ElectionID:  electionID,
		CandidateID: candidateID,
		VoterID:     actor.ID,
		BallotToken: uuid.NewString(),
		CreatedAt:   s.clock.Now(),
	}

	if err := s.votes.Insert(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrDuplicateVote) {
			metrics.ObserveVoteRequest("duplicate")
			return domain.Vote{}, fmt.Errorf("voter already voted in election %s: %w", electionID, err)
		}
		metrics.ObserveVoteRequest("error")
		return domain.Vote{}, err
	}
	metrics.ObserveVoteRequest("accepted")

	event := domain.BallotEvent{
		ElectionID:  vote.ElectionID,
		CandidateID: vote.CandidateID,
		VoteID:      vote.ID,
		CastAt:      vote.CreatedAt,
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, event); err != nil {
			logger.Error("ballot: publish event", "error", err, "vote_id", vote.ID)
		}
	}
	if s.audit != nil {
		s.audit.Record(ctx, actor, "vote.cast", map[string]any{
			"election_id":  string(vote.ElectionID),
			"candidate_id": string(vote.CandidateID),
			"vote_id":      string(vote.ID),
		})
	}

	return vote, nil
}

// Status answers whether the actor already voted in the election and, if
// so, returns the receipt token they got when the ballot was accepted.
func (s *Service) Status(ctx context.Context, actor domain.Actor, electionID domain.ElectionID) (domain.VoteStatus, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return domain.VoteStatus{}, err
	}
	if !actor.IsAdmin() && election.Status != domain.StatusActive {
		return domain.VoteStatus{}, fmt.Errorf("election %s is not open: %w", electionID, domain.ErrNotFound)
	}

	vote, err := s.votes.FindByVoter(ctx, electionID, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VoteStatus{HasVoted: false}, nil
		}
		return domain.VoteStatus{}, err
	}

	castAt := vote.CreatedAt
	return domain.VoteStatus{
		HasVoted:    true,
		BallotToken: vote.BallotToken,
		CastAt:      &castAt,
	}, nil
}

var _ domain.BallotService = (*Service)(nil)
