package domain

import (
	"context"
	"time"
)

type PrincipalRepository interface {
	Create(ctx context.Context, p Principal, defaultRole Role) error
	FindByEmail(ctx context.Context, email string) (Principal, error)
	FindByID(ctx context.Context, id PrincipalID) (Principal, error)
	EnsureRole(ctx context.Context, id PrincipalID, role Role) error
	RolesOf(ctx context.Context, id PrincipalID) ([]Role, error)
}

type ElectionRepository interface {
	Create(ctx context.Context, e Election, candidates []Candidate) error
	Update(ctx context.Context, e Election) error
	Delete(ctx context.Context, id ElectionID) error
	FindByID(ctx context.Context, id ElectionID) (Election, error)
	List(ctx context.Context, statuses ...ElectionStatus) ([]Election, error)
}

type CandidateRepository interface {
	Create(ctx context.Context, c Candidate) error
	Update(ctx context.Context, c Candidate) error
	Delete(ctx context.Context, id CandidateID) error
	FindByID(ctx context.Context, id CandidateID) (Candidate, error)
	ListByElection(ctx context.Context, electionID ElectionID) ([]Candidate, error)
}

type VoteRepository interface {
	Insert(ctx context.Context, v Vote) error
	HasVoted(ctx context.Context, electionID ElectionID, voterID PrincipalID) (bool, error)
	FindByVoter(ctx context.Context, electionID ElectionID, voterID PrincipalID) (Vote, error)
	CountByElection(ctx context.Context, electionID ElectionID) (int64, error)
	CountByCandidate(ctx context.Context, electionID ElectionID) (map[CandidateID]int64, error)
	TallyByElection(ctx context.Context, electionID ElectionID) ([]TallyEntry, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

type Counter interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	GetAll(ctx context.Context, keys []string) (map[string]int64, error)
	Set(ctx context.Context, key string, value int64) error
}

// BallotFeed carries committed ballot events from the vote path to the
// projector and to live subscribers. Subscribe returns a cancel func that
// releases the subscription.
type BallotFeed interface {
	Publish(ctx context.Context, event BallotEvent) error
	Subscribe(ctx context.Context, electionID ElectionID) (<-chan BallotEvent, func(), error)
	SubscribeAll(ctx context.Context) (<-chan BallotEvent, func(), error)
}

type SessionStore interface {
	Create(ctx context.Context, token string, principalID PrincipalID, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (PrincipalID, error)
	Delete(ctx context.Context, token string) error
}

// LoginThrottle bounds credential-guessing attempts per key.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) error
}

type Clock interface {
	Now() time.Time
}

// AuditTrail records actions best-effort. Implementations log failures
// instead of returning them so audit problems never fail the calling
// operation.
type AuditTrail interface {
	Record(ctx context.Context, actor Actor, action string, detail map[string]any)
}

type IdentityService interface {
	Register(ctx context.Context, name, email, password, studentNo string) (Principal, error)
	Login(ctx context.Context, email, password string) (string, Principal, error)
	Resolve(ctx context.Context, token string) (Actor, error)
	Logout(ctx context.Context, token string) error
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type ElectionService interface {
	Create(ctx context.Context, actor Actor, e Election, candidates []Candidate) (Election, error)
	List(ctx context.Context, actor Actor) ([]Election, error)
	Get(ctx context.Context, actor Actor, id ElectionID) (Election, error)
	Update(ctx context.Context, actor Actor, id ElectionID, upd ElectionUpdate) (Election, error)
	Delete(ctx context.Context, actor Actor, id ElectionID) error
	ListCandidates(ctx context.Context, actor Actor, id ElectionID) ([]Candidate, error)
	AddCandidate(ctx context.Context, actor Actor, id ElectionID, c Candidate) (Candidate, error)
	UpdateCandidate(ctx context.Context, actor Actor, id CandidateID, name, description, imageURL *string) (Candidate, error)
	RemoveCandidate(ctx context.Context, actor Actor, id CandidateID) error
}

type BallotService interface {
	Cast(ctx context.Context, actor Actor, electionID ElectionID, candidateID CandidateID) (Vote, error)
	Status(ctx context.Context, actor Actor, electionID ElectionID) (VoteStatus, error)
}

type TallyService interface {
	Results(ctx context.Context, actor Actor, electionID ElectionID) ([]TallyEntry, int64, error)
	Live(ctx context.Context, actor Actor, electionID ElectionID) ([]TallyEntry, int64, error)
	ExportCSV(ctx context.Context, actor Actor, electionID ElectionID) ([]byte, error)
}

type AuditService interface {
	Recent(ctx context.Context, actor Actor, limit int) ([]AuditEntry, error)
}
