package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
)

// AuditRepository appends to and reads the audit trail. Entries are never
// updated or deleted.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditEntryModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	ActorID   string    `gorm:"column:actor_id;index"`
	Action    string    `gorm:"column:action;index"`
	Detail    []byte    `gorm:"column:detail"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (auditEntryModel) TableName() string {
	return "audit_entries"
}

func (m auditEntryModel) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ID:        domain.AuditID(m.ID),
		ActorID:   domain.PrincipalID(m.ActorID),
		Action:    m.Action,
		Detail:    m.Detail,
		CreatedAt: m.CreatedAt,
	}
}

func fromDomainAuditEntry(e domain.AuditEntry) auditEntryModel {
	return auditEntryModel{
		ID:        string(e.ID),
		ActorID:   string(e.ActorID),
		Action:    e.Action,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := fromDomainAuditEntry(entry)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm audit: insert: %w", err)
	}
	return nil
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []auditEntryModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm audit: recent: %w", err)
	}

	result := make([]domain.AuditEntry, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

var _ domain.AuditRepository = (*AuditRepository)(nil)
