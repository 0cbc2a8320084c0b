// Package audit appends accountability entries for sensitive actions and
// exposes the admin-only read surface.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
	"github.com/campusvote/campusvote/internal/platform/logger"
)

type Service struct {
	entries domain.AuditRepository
	clock   domain.Clock
	ids     *ids.Generator
}

func NewService(entries domain.AuditRepository, clock domain.Clock, idsGen *ids.Generator) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		entries: entries,
		clock:   clock,
		ids:     idsGen,
	}
}

// Record appends one entry. It never returns an error: a failed append
// must not undo or fail the primary action, so problems are only logged
// for operators.
func (s *Service) Record(ctx context.Context, actor domain.Actor, action string, detail map[string]any) {
	var payload []byte
	if len(detail) > 0 {
		raw, err := json.Marshal(detail)
		if err != nil {
			logger.Error("audit: marshal detail", "action", action, "error", err)
			return
		}
		payload = raw
	}

	entry := domain.AuditEntry{
		ID:        domain.AuditID(s.ids.New()),
		ActorID:   actor.ID,
		Action:    action,
		Detail:    payload,
		CreatedAt: s.clock.Now(),
	}

	if err := s.entries.Append(ctx, entry); err != nil {
		logger.Error("audit: append failed", "action", action, "actor", actor.ID, "error", err)
	}
}

// Recent returns the newest entries, admins only.
func (s *Service) Recent(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditEntry, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("audit trail is admin-only: %w", domain.ErrPermissionDenied)
	}
	return s.entries.Recent(ctx, limit)
}

var (
	_ domain.AuditTrail   = (*Service)(nil)
	_ domain.AuditService = (*Service)(nil)
)
