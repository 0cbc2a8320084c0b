// Package worker projects committed ballots into the Redis live counters
// and keeps them converged with the vote ledger.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/campusvote/campusvote/internal/app/tally"
	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/logger"
	"github.com/campusvote/campusvote/internal/platform/metrics"
)

const defaultReconcileInterval = 30 * time.Second

// Projector consumes the ballot feed and maintains the per-election and
// per-candidate counters that back the live tally. A periodic reconcile
// recomputes every counter from Postgres, so events missed while the
// worker was down converge instead of drifting forever.
type Projector struct {
	feed       domain.BallotFeed
	counters   domain.Counter
	elections  domain.ElectionRepository
	candidates domain.CandidateRepository
	votes      domain.VoteRepository
	interval   time.Duration
}

func NewProjector(
	feed domain.BallotFeed,
	counters domain.Counter,
	elections domain.ElectionRepository,
	candidates domain.CandidateRepository,
	votes domain.VoteRepository,
	interval time.Duration,
) *Projector {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &Projector{
		feed:       feed,
		counters:   counters,
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		interval:   interval,
	}
}

// Run blocks until ctx is canceled, applying feed events as they arrive
// and reconciling on the configured interval.
func (p *Projector) Run(ctx context.Context) error {
	events, stop, err := p.feed.SubscribeAll(ctx)
	if err != nil {
		return fmt.Errorf("worker: subscribe ballot feed: %w", err)
	}
	defer stop()

	// Counters may be stale after a restart; start from the ledger truth.
	if err := p.Reconcile(ctx); err != nil {
		logger.Error("worker: initial reconcile", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := logger.With("component", "projector")
	log.Info("projector started", "reconcile_interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("projector stopping")
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return fmt.Errorf("worker: ballot feed closed")
			}
			if err := p.Apply(ctx, event); err != nil {
				log.Error("apply ballot event", "error", err, "vote_id", event.VoteID)
			}
		case <-ticker.C:
			if err := p.Reconcile(ctx); err != nil {
				log.Error("reconcile counters", "error", err)
			}
		}
	}
}

// Apply folds one committed ballot into the live counters.
func (p *Projector) Apply(ctx context.Context, event domain.BallotEvent) error {
	start := time.Now()

	if _, err := p.counters.Increment(ctx, tally.CounterKeyTotal(event.ElectionID), 1); err != nil {
		return fmt.Errorf("worker: increment election total %s: %w", event.ElectionID, err)
	}
	if _, err := p.counters.Increment(ctx, tally.CounterKeyCandidate(event.ElectionID, event.CandidateID), 1); err != nil {
		return fmt.Errorf("worker: increment candidate counter %s/%s: %w", event.ElectionID, event.CandidateID, err)
	}

	metrics.IncVoteProjected()
	metrics.ObserveProjectionDuration(time.Since(start).Seconds())
	return nil
}

// Reconcile overwrites every counter with the totals recomputed from the
// vote ledger. Candidates without votes are snapped to zero as well, so a
// counter that drifted upward comes back down.
func (p *Projector) Reconcile(ctx context.Context) error {
	elections, err := p.elections.List(ctx)
	if err != nil {
		metrics.ObserveReconcileRun("error")
		return fmt.Errorf("worker: list elections: %w", err)
	}

	for _, e := range elections {
		if err := p.reconcileElection(ctx, e.ID); err != nil {
			metrics.ObserveReconcileRun("error")
			return err
		}
	}

	metrics.ObserveReconcileRun("ok")
	return nil
}

func (p *Projector) reconcileElection(ctx context.Context, id domain.ElectionID) error {
	total, err := p.votes.CountByElection(ctx, id)
	if err != nil {
		return fmt.Errorf("worker: count votes for %s: %w", id, err)
	}
	if err := p.counters.Set(ctx, tally.CounterKeyTotal(id), total); err != nil {
		return fmt.Errorf("worker: set election total %s: %w", id, err)
	}

	counts, err := p.votes.CountByCandidate(ctx, id)
	if err != nil {
		return fmt.Errorf("worker: count candidate votes for %s: %w", id, err)
	}
	roster, err := p.candidates.ListByElection(ctx, id)
	if err != nil {
		return fmt.Errorf("worker: list candidates for %s: %w", id, err)
	}
	for _, c := range roster {
		if err := p.counters.Set(ctx, tally.CounterKeyCandidate(id, c.ID), counts[c.ID]); err != nil {
			return fmt.Errorf("worker: set candidate counter %s/%s: %w", id, c.ID, err)
		}
	}
	return nil
}
