package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
)

// ElectionRepository maps the election aggregate to GORM tables.
type ElectionRepository struct {
	db *gorm.DB
}

func NewElectionRepository(db *gorm.DB) *ElectionRepository {
	return &ElectionRepository{db: db}
}

type electionModel struct {
	ID          string           `gorm:"column:id;primaryKey"`
	Title       string           `gorm:"column:title"`
	Description string           `gorm:"column:description"`
	Status      string           `gorm:"column:status"`
	Anonymous   bool             `gorm:"column:anonymous"`
	StartsAt    time.Time        `gorm:"column:starts_at"`
	EndsAt      time.Time        `gorm:"column:ends_at"`
	CreatedBy   string           `gorm:"column:created_by"`
	CreatedAt   time.Time        `gorm:"column:created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at"`
	Candidates  []candidateModel `gorm:"foreignKey:ElectionID;references:ID"`
}

func (electionModel) TableName() string {
	return "elections"
}

func (m electionModel) toDomain(includeCandidates bool) domain.Election {
	e := domain.Election{
		ID:          domain.ElectionID(m.ID),
		Title:       m.Title,
		Description: m.Description,
		Status:      domain.ElectionStatus(m.Status),
		Anonymous:   m.Anonymous,
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
		CreatedBy:   domain.PrincipalID(m.CreatedBy),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	if includeCandidates {
		candidates := make([]domain.Candidate, len(m.Candidates))
		for i, c := range m.Candidates {
			candidates[i] = c.toDomain()
		}
		e.Candidates = candidates
	}

	return e
}

func fromDomainElection(e domain.Election) electionModel {
	return electionModel{
		ID:          string(e.ID),
		Title:       e.Title,
		Description: e.Description,
		Status:      string(e.Status),
		Anonymous:   e.Anonymous,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatedBy:   string(e.CreatedBy),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Create inserts the election and its initial candidate slate in one
// transaction. Either everything lands or nothing does.
func (r *ElectionRepository) Create(ctx context.Context, e domain.Election, candidates []domain.Candidate) error {
	model := fromDomainElection(e)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for _, c := range candidates {
			cm := fromDomainCandidate(c)
			if err := tx.Create(&cm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm elections: insert: %w", err)
	}
	return nil
}

func (r *ElectionRepository) Update(ctx context.Context, e domain.Election) error {
	model := fromDomainElection(e)
	if err := r.db.WithContext(ctx).Model(&electionModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"title":       model.Title,
			"description": model.Description,
			"status":      model.Status,
			"anonymous":   model.Anonymous,
			"starts_at":   model.StartsAt,
			"ends_at":     model.EndsAt,
			"updated_at":  model.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("gorm elections: update: %w", err)
	}
	return nil
}

// Delete removes the election with its candidates and ballots in one
// transaction, child rows first so the delete also works on engines
// without enforced foreign keys.
func (r *ElectionRepository) Delete(ctx context.Context, id domain.ElectionID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("election_id = ?", id).Delete(&voteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("election_id = ?", id).Delete(&candidateModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&electionModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("gorm elections: delete: %w", err)
	}
	return nil
}

func (r *ElectionRepository) FindByID(ctx context.Context, id domain.ElectionID) (domain.Election, error) {
	var model electionModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Election{}, domain.ErrNotFound
		}
		return domain.Election{}, fmt.Errorf("gorm elections: find by id: %w", err)
	}
	return model.toDomain(true), nil
}

// List returns elections newest first, optionally filtered to the given
// statuses. Candidate slates are not loaded here.
func (r *ElectionRepository) List(ctx context.Context, statuses ...domain.ElectionStatus) ([]domain.Election, error) {
	q := r.db.WithContext(ctx).Model(&electionModel{})
	if len(statuses) > 0 {
		vals := make([]string, len(statuses))
		for i, s := range statuses {
			vals[i] = string(s)
		}
		q = q.Where("status IN ?", vals)
	}

	var models []electionModel
	if err := q.Order("starts_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm elections: list: %w", err)
	}

	result := make([]domain.Election, len(models))
	for i, model := range models {
		result[i] = model.toDomain(false)
	}
	return result, nil
}

var _ domain.ElectionRepository = (*ElectionRepository)(nil)
