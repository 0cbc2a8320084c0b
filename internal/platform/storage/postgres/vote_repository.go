package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
)

// VoteRepository appends to the ballot ledger and exposes the aggregate
// queries the tally needs.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

type voteModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id;index"`
	CandidateID string    `gorm:"column:candidate_id;index"`
	VoterID     string    `gorm:"column:voter_id"`
	BallotToken string    `gorm:"column:ballot_token"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func (m voteModel) toDomain() domain.Vote {
	return domain.Vote{
		ID:          domain.VoteID(m.ID),
		ElectionID:  domain.ElectionID(m.ElectionID),
		CandidateID: domain.CandidateID(m.CandidateID),
		VoterID:     domain.PrincipalID(m.VoterID),
		BallotToken: m.BallotToken,
		CreatedAt:   m.CreatedAt,
	}
}

func fromDomainVote(v domain.Vote) voteModel {
	return voteModel{
		ID:          string(v.ID),
		ElectionID:  string(v.ElectionID),
		CandidateID: string(v.CandidateID),
		VoterID:     string(v.VoterID),
		BallotToken: v.BallotToken,
		CreatedAt:   v.CreatedAt,
	}
}

// Insert appends one ballot. The unique index on (election_id, voter_id)
// makes the database the arbiter of one-vote-per-election; a violation
// surfaces as domain.ErrDuplicateVote no matter how the race interleaved.
func (r *VoteRepository) Insert(ctx context.Context, v domain.Vote) error {
	model := fromDomainVote(v)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateVote
		}
		return fmt.Errorf("gorm votes: insert: %w", err)
	}
	return nil
}

func (r *VoteRepository) HasVoted(ctx context.Context, electionID domain.ElectionID, voterID domain.PrincipalID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("election_id = ? AND voter_id = ?", electionID, voterID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm votes: has voted: %w", err)
	}
	return count > 0, nil
}

func (r *VoteRepository) FindByVoter(ctx context.Context, electionID domain.ElectionID, voterID domain.PrincipalID) (domain.Vote, error) {
	var model voteModel
	if err := r.db.WithContext(ctx).
		First(&model, "election_id = ? AND voter_id = ?", electionID, voterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Vote{}, domain.ErrNotFound
		}
		return domain.Vote{}, fmt.Errorf("gorm votes: find by voter: %w", err)
	}
	return model.toDomain(), nil
}

func (r *VoteRepository) CountByElection(ctx context.Context, electionID domain.ElectionID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("election_id = ?", electionID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm votes: count by election: %w", err)
	}
	return total, nil
}

func (r *VoteRepository) CountByCandidate(ctx context.Context, electionID domain.ElectionID) (map[domain.CandidateID]int64, error) {
	type row struct {
		CandidateID string
		Total       int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Select("candidate_id as candidate_id, COUNT(*) as total").
		Where("election_id = ?", electionID).
		Group("candidate_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm votes: count by candidate: %w", err)
	}

	totals := make(map[domain.CandidateID]int64, len(rows))
	for _, item := range rows {
		totals[domain.CandidateID(item.CandidateID)] = item.Total
	}
	return totals, nil
}

// TallyByElection returns one row per candidate, zero-filled via LEFT
// JOIN, ordered by votes descending with name as the tie-break.
func (r *VoteRepository) TallyByElection(ctx context.Context, electionID domain.ElectionID) ([]domain.TallyEntry, error) {
	type row struct {
		CandidateID   string
		CandidateName string
		Total         int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Raw(`
            SELECT c.id AS candidate_id, c.name AS candidate_name, COUNT(v.id) AS total
            FROM candidates c
            LEFT JOIN votes v ON v.candidate_id = c.id AND v.election_id = c.election_id
            WHERE c.election_id = ?
            GROUP BY c.id, c.name
            ORDER BY total DESC, c.name ASC
        `, electionID).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm votes: tally by election: %w", err)
	}

	entries := make([]domain.TallyEntry, len(rows))
	for i, item := range rows {
		entries[i] = domain.TallyEntry{
			CandidateID:   domain.CandidateID(item.CandidateID),
			CandidateName: item.CandidateName,
			Votes:         item.Total,
		}
	}
	return entries, nil
}

var _ domain.VoteRepository = (*VoteRepository)(nil)
