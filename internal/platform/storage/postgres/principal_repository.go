package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusvote/campusvote/internal/domain"
)

// PrincipalRepository maps user identities and their role grants to GORM
// tables.
type PrincipalRepository struct {
	db *gorm.DB
}

func NewPrincipalRepository(db *gorm.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

type principalModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name"`
	Email        string    `gorm:"column:email"`
	PasswordHash string    `gorm:"column:password_hash"`
	StudentNo    string    `gorm:"column:student_no"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (principalModel) TableName() string {
	return "principals"
}

type roleAssignmentModel struct {
	PrincipalID string    `gorm:"column:principal_id;primaryKey"`
	Role        string    `gorm:"column:role;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (roleAssignmentModel) TableName() string {
	return "role_assignments"
}

func (m principalModel) toDomain() domain.Principal {
	return domain.Principal{
		ID:           domain.PrincipalID(m.ID),
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		StudentNo:    m.StudentNo,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromDomainPrincipal(p domain.Principal) principalModel {
	return principalModel{
		ID:           string(p.ID),
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		StudentNo:    p.StudentNo,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// Create inserts the principal together with its default role in one
// transaction so a registered user never exists without a grant.
func (r *PrincipalRepository) Create(ctx context.Context, p domain.Principal, defaultRole domain.Role) error {
	model := fromDomainPrincipal(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		grant := roleAssignmentModel{
			PrincipalID: model.ID,
			Role:        string(defaultRole),
			CreatedAt:   model.CreatedAt,
		}
		return tx.Create(&grant).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The only unique column is the email.
			return fmt.Errorf("gorm principals: email already registered: %w", domain.ErrValidation)
		}
		return fmt.Errorf("gorm principals: insert: %w", err)
	}
	return nil
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (domain.Principal, error) {
	var model principalModel
	if err := r.db.WithContext(ctx).
		First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, fmt.Errorf("gorm principals: find by email: %w", err)
	}
	return model.toDomain(), nil
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id domain.PrincipalID) (domain.Principal, error) {
	var model principalModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, fmt.Errorf("gorm principals: find by id: %w", err)
	}
	return model.toDomain(), nil
}

// EnsureRole grants the role if missing. Conflicts on the composite key
// mean the grant already exists, which is fine.
func (r *PrincipalRepository) EnsureRole(ctx context.Context, id domain.PrincipalID, role domain.Role) error {
	grant := roleAssignmentModel{
		PrincipalID: string(id),
		Role:        string(role),
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grant).Error; err != nil {
		return fmt.Errorf("gorm principals: ensure role: %w", err)
	}
	return nil
}

func (r *PrincipalRepository) RolesOf(ctx context.Context, id domain.PrincipalID) ([]domain.Role, error) {
	var models []roleAssignmentModel
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", id).
		Order("role ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm principals: roles of: %w", err)
	}

	roles := make([]domain.Role, len(models))
	for i, m := range models {
		roles[i] = domain.Role(m.Role)
	}
	return roles, nil
}

var _ domain.PrincipalRepository = (*PrincipalRepository)(nil)
