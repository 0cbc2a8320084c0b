package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
)

type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

type candidateModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id;index"`
	Name        string    `gorm:"column:name"`
	Description string    `gorm:"column:description"`
	ImageURL    string    `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func (m candidateModel) toDomain() domain.Candidate {
	return domain.Candidate{
		ID:          domain.CandidateID(m.ID),
		ElectionID:  domain.ElectionID(m.ElectionID),
		Name:        m.Name,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromDomainCandidate(c domain.Candidate) candidateModel {
	return candidateModel{
		ID:          string(c.ID),
		ElectionID:  string(c.ElectionID),
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r *CandidateRepository) Create(ctx context.Context, c domain.Candidate) error {
	model := fromDomainCandidate(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm candidates: insert: %w", err)
	}
	return nil
}

func (r *CandidateRepository) Update(ctx context.Context, c domain.Candidate) error {
	model := fromDomainCandidate(c)
	if err := r.db.WithContext(ctx).Model(&candidateModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"image_url":   model.ImageURL,
			"updated_at":  model.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("gorm candidates: update: %w", err)
	}
	return nil
}

func (r *CandidateRepository) Delete(ctx context.Context, id domain.CandidateID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&candidateModel{})
	if res.Error != nil {
		return fmt.Errorf("gorm candidates: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CandidateRepository) FindByID(ctx context.Context, id domain.CandidateID) (domain.Candidate, error) {
	var model candidateModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Candidate{}, domain.ErrNotFound
		}
		return domain.Candidate{}, fmt.Errorf("gorm candidates: find by id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *CandidateRepository) ListByElection(ctx context.Context, electionID domain.ElectionID) ([]domain.Candidate, error) {
	var models []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm candidates: list by election: %w", err)
	}

	result := make([]domain.Candidate, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

var _ domain.CandidateRepository = (*CandidateRepository)(nil)
