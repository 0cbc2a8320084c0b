// Package migrations centralizes the gormigrate versions applied at startup.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: nil db")
	}

	// gormigrate versions the schema instead of running AutoMigrate
	// unconditionally in production.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202508010001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Principal{},
					&domain.RoleAssignment{},
					&domain.Election{},
					&domain.Candidate{},
					&domain.Vote{},
					&domain.AuditEntry{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"audit_entries",
					"votes",
					"candidates",
					"elections",
					"role_assignments",
					"principals",
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: apply failed: %w", err)
	}

	return nil
}
