package domain

import (
	"encoding/json"
	"time"
)

type (
	ElectionID  string
	CandidateID string
	VoteID      string
	PrincipalID string
	AuditID     string
)

// Role is a named permission grant held by a principal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ElectionStatus gates visibility and mutability. Transitions are
// admin-controlled only; an election never closes by itself when its end
// time passes.
type ElectionStatus string

const (
	StatusDraft  ElectionStatus = "draft"
	StatusActive ElectionStatus = "active"
	StatusClosed ElectionStatus = "closed"
)

// Principal is an authenticated user identity. Rows are created on
// registration and never deleted by this system.
type Principal struct {
	ID           PrincipalID `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Name         string      `gorm:"column:name;type:text;not null" json:"name"`
	Email        string      `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string      `gorm:"column:password_hash;type:text;not null" json:"-"`
	StudentNo    string      `gorm:"column:student_no;type:text" json:"student_no,omitempty"`
	CreatedAt    time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// RoleAssignment joins a principal to a role. The composite primary key
// keeps (principal, role) pairs unique.
type RoleAssignment struct {
	PrincipalID PrincipalID `gorm:"column:principal_id;type:char(26);primaryKey" json:"principal_id"`
	Role        Role        `gorm:"column:role;type:text;primaryKey" json:"role"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

type Election struct {
	ID          ElectionID     `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Title       string         `gorm:"column:title;type:text;not null" json:"title"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	Status      ElectionStatus `gorm:"column:status;type:text;not null;default:draft;index" json:"status"`
	// Anonymous is advisory for presentation only; the voter id is stored
	// on every vote row regardless.
	Anonymous  bool        `gorm:"column:anonymous;not null;default:false" json:"anonymous"`
	StartsAt   time.Time   `gorm:"column:starts_at;not null" json:"starts_at"`
	EndsAt     time.Time   `gorm:"column:ends_at;not null" json:"ends_at"`
	CreatedBy  PrincipalID `gorm:"column:created_by;type:char(26);not null;index" json:"created_by"`
	Candidates []Candidate `gorm:"foreignKey:ElectionID;constraint:OnDelete:CASCADE" json:"candidates,omitempty"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type Candidate struct {
	ID          CandidateID `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ElectionID  ElectionID  `gorm:"column:election_id;type:char(26);not null;index" json:"election_id"`
	Name        string      `gorm:"column:name;type:text;not null" json:"name"`
	Description string      `gorm:"column:description;type:text" json:"description"`
	ImageURL    string      `gorm:"column:image_url;type:text" json:"image_url,omitempty"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Vote is the append-only ballot ledger entry. The unique index on
// (election_id, voter_id) is the one-vote-per-election invariant and is
// enforced by the storage engine, not by application checks.
type Vote struct {
	ID          VoteID      `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ElectionID  ElectionID  `gorm:"column:election_id;type:char(26);not null;uniqueIndex:idx_votes_election_voter,priority:1;index:idx_votes_election_candidate,priority:1" json:"election_id"`
	CandidateID CandidateID `gorm:"column:candidate_id;type:char(26);not null;index:idx_votes_election_candidate,priority:2" json:"candidate_id"`
	VoterID     PrincipalID `gorm:"column:voter_id;type:char(26);not null;uniqueIndex:idx_votes_election_voter,priority:2" json:"voter_id"`
	BallotToken string      `gorm:"column:ballot_token;type:char(36);not null" json:"ballot_token"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// AuditEntry records a significant action for accountability. Entries are
// append-only and never consulted by the tally path.
type AuditEntry struct {
	ID        AuditID         `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ActorID   PrincipalID     `gorm:"column:actor_id;type:char(26);not null;index" json:"actor_id"`
	Action    string          `gorm:"column:action;type:text;not null;index" json:"action"`
	Detail    json.RawMessage `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TallyEntry is one row of an election's derived result, ordered by vote
// count descending with candidate name as the deterministic tie-break.
type TallyEntry struct {
	CandidateID   CandidateID `json:"candidate_id"`
	CandidateName string      `json:"candidate_name"`
	Votes         int64       `json:"votes"`
}

// VoteStatus answers "has this principal voted here" without exposing the
// chosen candidate.
type VoteStatus struct {
	HasVoted    bool       `json:"has_voted"`
	BallotToken string     `json:"ballot_token,omitempty"`
	CastAt      *time.Time `json:"cast_at,omitempty"`
}

// BallotEvent is published on an election's feed channel after a vote
// commits. It deliberately omits the voter id.
type BallotEvent struct {
	ElectionID  ElectionID  `json:"election_id"`
	CandidateID CandidateID `json:"candidate_id"`
	VoteID      VoteID      `json:"vote_id"`
	CastAt      time.Time   `json:"cast_at"`
}

// Actor is the authenticated principal attached to a request, together with
// the roles resolved for it. It is the capability predicate every privileged
// operation consults before touching storage.
type Actor struct {
	ID    PrincipalID
	Name  string
	Roles []Role
}

func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// ElectionUpdate carries the admin-mutable election fields; nil pointers
// leave the current value untouched.
type ElectionUpdate struct {
	Title       *string
	Description *string
	Status      *ElectionStatus
	Anonymous   *bool
	StartsAt    *time.Time
	EndsAt      *time.Time
}

func (Principal) TableName() string { return "principals" }

func (RoleAssignment) TableName() string { return "role_assignments" }

func (Election) TableName() string { return "elections" }

func (Candidate) TableName() string { return "candidates" }

func (Vote) TableName() string { return "votes" }

func (AuditEntry) TableName() string { return "audit_entries" }
