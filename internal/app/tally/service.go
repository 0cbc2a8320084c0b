// Package tally aggregates ballots into results. Results reads the vote
// ledger directly and is read-your-writes; Live reads the Redis counters
// the projector maintains, trading bounded staleness for cheap
// high-frequency polls.
package tally

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"github.com/campusvote/campusvote/internal/domain"
)

type Service struct {
	elections  domain.ElectionRepository
	candidates domain.CandidateRepository
	votes      domain.VoteRepository
	counters   domain.Counter
}

func NewService(
	elections domain.ElectionRepository,
	candidates domain.CandidateRepository,
	votes domain.VoteRepository,
	counters domain.Counter,
) *Service {
	return &Service{
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		counters:   counters,
	}
}

// Results computes the authoritative tally from the vote ledger. Every
// candidate appears even with zero votes, ordered by votes descending
// with the candidate name as tie-break.
func (s *Service) Results(ctx context.Context, actor domain.Actor, electionID domain.ElectionID) ([]domain.TallyEntry, int64, error) {
	if err := s.checkVisibility(ctx, actor, electionID); err != nil {
		return nil, 0, err
	}

	entries, err := s.votes.TallyByElection(ctx, electionID)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, entry := range entries {
		total += entry.Votes
	}
	return entries, total, nil
}

// Live serves the projector-maintained counters. Candidates missing a
// counter report zero, so a freshly added candidate shows up immediately.
func (s *Service) Live(ctx context.Context, actor domain.Actor, electionID domain.ElectionID) ([]domain.TallyEntry, int64, error) {
	if err := s.checkVisibility(ctx, actor, electionID); err != nil {
		return nil, 0, err
	}

	roster, err := s.candidates.ListByElection(ctx, electionID)
	if err != nil {
		return nil, 0, err
	}

	keys := make([]string, 0, len(roster))
	for _, c := range roster {
		keys = append(keys, CounterKeyCandidate(electionID, c.ID))
	}

	counts := make(map[string]int64, len(keys))
	if len(keys) > 0 {
		counts, err = s.counters.GetAll(ctx, keys)
		if err != nil {
			return nil, 0, fmt.Errorf("tally: read live counters: %w", err)
		}
	}

	entries := make([]domain.TallyEntry, 0, len(roster))
	for _, c := range roster {
		entries = append(entries, domain.TallyEntry{
			CandidateID:   c.ID,
			CandidateName: c.Name,
			Votes:         counts[CounterKeyCandidate(electionID, c.ID)],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return entries[i].CandidateName < entries[j].CandidateName
	})

	total, err := s.counters.Get(ctx, CounterKeyTotal(electionID))
	if err != nil {
		return nil, 0, fmt.Errorf("tally: read live total: %w", err)
	}

	return entries, total, nil
}

// ExportCSV renders the authoritative tally as Candidate,Votes,Percentage
// rows. Percentages carry two decimals; a zero-vote election exports
// literal "0%" rows instead of dividing by zero.
func (s *Service) ExportCSV(ctx context.Context, actor domain.Actor, electionID domain.ElectionID) ([]byte, error) {
	entries, total, err := s.Results(ctx, actor, electionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Candidate", "Votes", "Percentage"}); err != nil {
		return nil, fmt.Errorf("tally: write csv header: %w", err)
	}
	for _, entry := range entries {
		percentage := "0%"
		if total > 0 {
			percentage = fmt.Sprintf("%.2f%%", float64(entry.Votes)*100/float64(total))
		}
		row := []string{entry.CandidateName, strconv.FormatInt(entry.Votes, 10), percentage}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("tally: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("tally: flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *Service) checkVisibility(ctx context.Context, actor domain.Actor, electionID domain.ElectionID) error {
	e, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && e.Status != domain.StatusActive {
		return fmt.Errorf("election %s is not open: %w", electionID, domain.ErrNotFound)
	}
	return nil
}

var _ domain.TallyService = (*Service)(nil)
