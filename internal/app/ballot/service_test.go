package ballot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
)

type inMemoryElectionRepo struct {
	mu   sync.Mutex
	byID map[domain.ElectionID]domain.Election
}

func newInMemoryElectionRepo() *inMemoryElectionRepo {
	return &inMemoryElectionRepo{byID: make(map[domain.ElectionID]domain.Election)}
}

func (r *inMemoryElectionRepo) Create(_ context.Context, e domain.Election, _ []domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = e
	return nil
}

func (r *inMemoryElectionRepo) Update(_ context.Context, e domain.Election) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = e
	return nil
}

func (r *inMemoryElectionRepo) Delete(_ context.Context, id domain.ElectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *inMemoryElectionRepo) FindByID(_ context.Context, id domain.ElectionID) (domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return domain.Election{}, domain.ErrNotFound
	}
	return e, nil
}

func (r *inMemoryElectionRepo) List(context.Context, ...domain.ElectionStatus) ([]domain.Election, error) {
	return nil, nil
}

type inMemoryCandidateRepo struct {
	mu   sync.Mutex
	byID map[domain.CandidateID]domain.Candidate
}

func newInMemoryCandidateRepo() *inMemoryCandidateRepo {
	return &inMemoryCandidateRepo{byID: make(map[domain.CandidateID]domain.Candidate)}
}

func (r *inMemoryCandidateRepo) Create(_ context.Context, c domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	return nil
}

func (r *inMemoryCandidateRepo) Update(_ context.Context, c domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	return nil
}

func (r *inMemoryCandidateRepo) Delete(_ context.Context, id domain.CandidateID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *inMemoryCandidateRepo) FindByID(_ context.Context, id domain.CandidateID) (domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.Candidate{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *inMemoryCandidateRepo) ListByElection(context.Context, domain.ElectionID) ([]domain.Candidate, error) {
	return nil, nil
}

type inMemoryVoteRepo struct {
	mu    sync.Mutex
	votes []domain.Vote
}

func newInMemoryVoteRepo() *inMemoryVoteRepo {
	return &inMemoryVoteRepo{}
}

func (r *inMemoryVoteRepo) Insert(_ context.Context, v domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.votes {
		if existing.ElectionID == v.ElectionID && existing.VoterID == v.VoterID {
			return domain.ErrDuplicateVote
		}
	}
	r.votes = append(r.votes, v)
	return nil
}

func (r *inMemoryVoteRepo) HasVoted(_ context.Context, electionID domain.ElectionID, voterID domain.PrincipalID) (bool, error) {
	_, err := r.FindByVoter(context.Background(), electionID, voterID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *inMemoryVoteRepo) FindByVoter(_ context.Context, electionID domain.ElectionID, voterID domain.PrincipalID) (domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.ElectionID == electionID && v.VoterID == voterID {
			return v, nil
		}
	}
	return domain.Vote{}, domain.ErrNotFound
}

func (r *inMemoryVoteRepo) CountByElection(_ context.Context, electionID domain.ElectionID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, v := range r.votes {
		if v.ElectionID == electionID {
			total++
		}
	}
	return total, nil
}

func (r *inMemoryVoteRepo) CountByCandidate(context.Context, domain.ElectionID) (map[domain.CandidateID]int64, error) {
	return nil, nil
}

func (r *inMemoryVoteRepo) TallyByElection(context.Context, domain.ElectionID) ([]domain.TallyEntry, error) {
	return nil, nil
}

type recordingFeed struct {
	mu     sync.Mutex
	events []domain.BallotEvent
	err    error
}

func (f *recordingFeed) Publish(_ context.Context, event domain.BallotEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *recordingFeed) Subscribe(context.Context, domain.ElectionID) (<-chan domain.BallotEvent, func(), error) {
	return nil, func() {}, nil
}

func (f *recordingFeed) SubscribeAll(context.Context) (<-chan domain.BallotEvent, func(), error) {
	return nil, func() {}, nil
}

func (f *recordingFeed) published() []domain.BallotEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.BallotEvent(nil), f.events...)
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ domain.Actor, action string, _ map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *recordingAudit) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int
	for _, got := range a.actions {
		if got == action {
			n++
		}
	}
	return n
}

type staticClock struct {
	now time.Time
}

func (c staticClock) Now() time.Time { return c.now }

type serviceDependencies struct {
	elections  *inMemoryElectionRepo
	candidates *inMemoryCandidateRepo
	votes      *inMemoryVoteRepo
	feed       *recordingFeed
	audit      *recordingAudit
	clock      staticClock
	service    *Service
}

func newServiceDeps() *serviceDependencies {
	deps := &serviceDependencies{
		elections:  newInMemoryElectionRepo(),
		candidates: newInMemoryCandidateRepo(),
		votes:      newInMemoryVoteRepo(),
		feed:       &recordingFeed{},
		audit:      &recordingAudit{},
		clock:      staticClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	deps.service = NewService(
		deps.elections,
		deps.candidates,
		deps.votes,
		deps.feed,
		deps.audit,
		deps.clock,
		ids.NewGenerator(),
	)
	return deps
}

func seedElection(deps *serviceDependencies, status domain.ElectionStatus) (domain.ElectionID, domain.CandidateID, domain.CandidateID) {
	electionID := domain.ElectionID("election-1")
	first := domain.CandidateID("candidate-ada")
	second := domain.CandidateID("candidate-grace")
	deps.elections.Create(context.Background(), domain.Election{ID: electionID, Title: "Student Council 2026", Status: status}, nil)
	deps.candidates.Create(context.Background(), domain.Candidate{ID: first, ElectionID: electionID, Name: "Ada Lovelace"})
	deps.candidates.Create(context.Background(), domain.Candidate{ID: second, ElectionID: electionID, Name: "Grace Hopper"})
	return electionID, first, second
}

func voter(id string) domain.Actor {
	return domain.Actor{ID: domain.PrincipalID(id), Name: "Voter " + id, Roles: []domain.Role{domain.RoleStudent}}
}

func TestService_Cast_WhenElectionIsActive_ShouldRecordVoteAndPublishEvent(t *testing.T) {
	deps := newServiceDeps()
	electionID, candidateID, _ := seedElection(deps, domain.StatusActive)

	vote, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, candidateID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vote.ID == "" {
		t.Fatal("expected a generated vote id")
	}
	if vote.BallotToken == "" {
		t.Fatal("expected a ballot receipt token")
	}
	if !vote.CreatedAt.Equal(deps.clock.now) {
		t.Fatalf("expected cast_at %v, got %v", deps.clock.now, vote.CreatedAt)
	}

	events := deps.feed.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 feed event, got %d", len(events))
	}
	if events[0].VoteID != vote.ID || events[0].CandidateID != candidateID {
		t.Fatalf("feed event does not match the vote: %+v", events[0])
	}
	if deps.audit.count("vote.cast") != 1 {
		t.Fatal("expected a vote.cast audit entry")
	}
}

func TestService_Cast_WhenElectionIsNotActive_ShouldReturnValidationError(t *testing.T) {
	for _, status := range []domain.ElectionStatus{domain.StatusDraft, domain.StatusClosed} {
		t.Run(string(status), func(t *testing.T) {
			deps := newServiceDeps()
			electionID, candidateID, _ := seedElection(deps, status)

			_, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, candidateID)

			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected domain.ErrValidation, got %v", err)
			}
			if total, _ := deps.votes.CountByElection(context.Background(), electionID); total != 0 {
				t.Fatalf("expected no votes, got %d", total)
			}
		})
	}
}

func TestService_Cast_WhenElectionIsMissing_ShouldReturnNotFound(t *testing.T) {
	deps := newServiceDeps()

	_, err := deps.service.Cast(context.Background(), voter("student-1"), "missing", "candidate-ada")

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected domain.ErrNotFound, got %v", err)
	}
}

func TestService_Cast_WhenCandidateBelongsToAnotherElection_ShouldReturnNotFound(t *testing.T) {
	deps := newServiceDeps()
	electionID, _, _ := seedElection(deps, domain.StatusActive)
	foreign := domain.CandidateID("candidate-foreign")
	deps.candidates.Create(context.Background(), domain.Candidate{ID: foreign, ElectionID: "election-2", Name: "Stray"})

	_, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, foreign)

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected domain.ErrNotFound, got %v", err)
	}
	if total, _ := deps.votes.CountByElection(context.Background(), electionID); total != 0 {
		t.Fatalf("expected no votes, got %d", total)
	}
}

func TestService_Cast_WhenActorIsAnonymous_ShouldDeny(t *testing.T) {
	deps := newServiceDeps()
	electionID, candidateID, _ := seedElection(deps, domain.StatusActive)

	_, err := deps.service.Cast(context.Background(), domain.Actor{}, electionID, candidateID)

	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected domain.ErrPermissionDenied, got %v", err)
	}
}

func TestService_Cast_WhenVoterVotesTwice_ShouldReturnDuplicateVote(t *testing.T) {
	deps := newServiceDeps()
	electionID, first, second := seedElection(deps, domain.StatusActive)

	if _, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, first); err != nil {
		t.Fatalf("first vote: unexpected error: %v", err)
	}

	_, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, second)

	if !errors.Is(err, domain.ErrDuplicateVote) {
		t.Fatalf("expected domain.ErrDuplicateVote, got %v", err)
	}
	if total, _ := deps.votes.CountByElection(context.Background(), electionID); total != 1 {
		t.Fatalf("expected exactly 1 vote, got %d", total)
	}
	if got := len(deps.feed.published()); got != 1 {
		t.Fatalf("expected 1 feed event, got %d", got)
	}
	if deps.audit.count("vote.cast") != 1 {
		t.Fatalf("expected 1 vote.cast audit entry, got %d", deps.audit.count("vote.cast"))
	}
}

func TestService_Cast_WhenDuplicatesRace_ShouldAcceptExactlyOne(t *testing.T) {
	deps := newServiceDeps()
	electionID, candidateID, _ := seedElection(deps, domain.StatusActive)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, candidateID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, duplicated int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrDuplicateVote):
			duplicated++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if accepted != 1 {
		t.Fatalf("expected exactly 1 accepted vote, got %d", accepted)
	}
	if duplicated != attempts-1 {
		t.Fatalf("expected %d duplicates, got %d", attempts-1, duplicated)
	}
	if total, _ := deps.votes.CountByElection(context.Background(), electionID); total != 1 {
		t.Fatalf("expected exactly 1 stored vote, got %d", total)
	}
}

func TestService_Cast_WhenFeedPublishFails_ShouldKeepTheVote(t *testing.T) {
	deps := newServiceDeps()
	electionID, candidateID, _ := seedElection(deps, domain.StatusActive)
	deps.feed.err = errors.New("redis down")

	vote, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, candidateID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := deps.votes.FindByVoter(context.Background(), electionID, "student-1")
	if err != nil {
		t.Fatalf("vote was not stored: %v", err)
	}
	if stored.ID != vote.ID {
		t.Fatalf("expected vote %s, got %s", vote.ID, stored.ID)
	}
}

func TestService_Status_WhenVoterHasNotVoted_ShouldReportFalse(t *testing.T) {
	deps := newServiceDeps()
	electionID, _, _ := seedElection(deps, domain.StatusActive)

	status, err := deps.service.Status(context.Background(), voter("student-1"), electionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.HasVoted {
		t.Fatal("expected has_voted to be false")
	}
	if status.BallotToken != "" || status.CastAt != nil {
		t.Fatalf("expected an empty receipt, got %+v", status)
	}
}

func TestService_Status_WhenVoterHasVoted_ShouldReturnReceipt(t *testing.T) {
	deps := newServiceDeps()
	electionID, candidateID, _ := seedElection(deps, domain.StatusActive)
	vote, err := deps.service.Cast(context.Background(), voter("student-1"), electionID, candidateID)
	if err != nil {
		t.Fatalf("cast: unexpected error: %v", err)
	}

	status, err := deps.service.Status(context.Background(), voter("student-1"), electionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !status.HasVoted {
		t.Fatal("expected has_voted to be true")
	}
	if status.BallotToken != vote.BallotToken {
		t.Fatalf("expected token %q, got %q", vote.BallotToken, status.BallotToken)
	}
	if status.CastAt == nil || !status.CastAt.Equal(vote.CreatedAt) {
		t.Fatalf("expected cast_at %v, got %v", vote.CreatedAt, status.CastAt)
	}
}

func TestService_Status_WhenElectionIsClosedAndActorIsStudent_ShouldReturnNotFound(t *testing.T) {
	deps := newServiceDeps()
	electionID, _, _ := seedElection(deps, domain.StatusClosed)

	_, err := deps.service.Status(context.Background(), voter("student-1"), electionID)

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected domain.ErrNotFound, got %v", err)
	}
}

func TestService_Status_WhenElectionIsClosedAndActorIsAdmin_ShouldAnswer(t *testing.T) {
	deps := newServiceDeps()
	electionID, _, _ := seedElection(deps, domain.StatusClosed)
	admin := domain.Actor{ID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	status, err := deps.service.Status(context.Background(), admin, electionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.HasVoted {
		t.Fatal("expected has_voted to be false for a non-voting admin")
	}
}
