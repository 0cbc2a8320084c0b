// Package identity implements registration, login sessions and the role
// resolution the request guard depends on.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
	"github.com/campusvote/campusvote/internal/platform/logger"
)

const minPasswordLength = 8

type Service struct {
	principals domain.PrincipalRepository
	sessions   domain.SessionStore
	throttle   domain.LoginThrottle
	audit      domain.AuditTrail
	clock      domain.Clock
	ids        *ids.Generator
	sessionTTL time.Duration
}

func NewService(
	principals domain.PrincipalRepository,
	sessions domain.SessionStore,
	throttle domain.LoginThrottle,
	audit domain.AuditTrail,
	clock domain.Clock,
	idsGen *ids.Generator,
	sessionTTL time.Duration,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &Service{
		principals: principals,
		sessions:   sessions,
		throttle:   throttle,
		audit:      audit,
		clock:      clock,
		ids:        idsGen,
		sessionTTL: sessionTTL,
	}
}

// Register creates the credential, the profile and the default student
// role in one storage transaction.
func (s *Service) Register(ctx context.Context, name, email, password, studentNo string) (domain.Principal, error) {
	email = normalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return domain.Principal{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("identity: hash password: %w", err)
	}

	now := s.clock.Now()
	principal := domain.Principal{
		ID:           domain.PrincipalID(s.ids.New()),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		StudentNo:    strings.TrimSpace(studentNo),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.principals.Create(ctx, principal, domain.RoleStudent); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return domain.Principal{}, fmt.Errorf("email already registered: %w", domain.ErrValidation)
		}
		return domain.Principal{}, err
	}

	if s.audit != nil {
		actor := domain.Actor{ID: principal.ID, Name: principal.Name, Roles: []domain.Role{domain.RoleStudent}}
		s.audit.Record(ctx, actor, "auth.register", map[string]any{"email": email})
	}

	return principal, nil
}

// Login verifies the credential and issues a bearer token. It also
// re-ensures the student grant so a principal that predates the role
// bootstrap converges on re-authentication.
func (s *Service) Login(ctx context.Context, email, password string) (string, domain.Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", domain.Principal{}, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, email); err != nil {
			return "", domain.Principal{}, err
		}
	}

	principal, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Principal{}, domain.ErrInvalidCredentials
		}
		return "", domain.Principal{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return "", domain.Principal{}, domain.ErrInvalidCredentials
	}

	if err := s.principals.EnsureRole(ctx, principal.ID, domain.RoleStudent); err != nil {
		return "", domain.Principal{}, err
	}

	token := uuid.NewString()
	if err := s.sessions.Create(ctx, token, principal.ID, s.sessionTTL); err != nil {
		return "", domain.Principal{}, fmt.Errorf("identity: store session: %w", err)
	}

	if s.audit != nil {
		actor := domain.Actor{ID: principal.ID, Name: principal.Name}
		s.audit.Record(ctx, actor, "auth.login", map[string]any{"email": email})
	}

	return token, principal, nil
}

// Resolve turns a bearer token into the Actor attached to the request.
func (s *Service) Resolve(ctx context.Context, token string) (domain.Actor, error) {
	if token == "" {
		return domain.Actor{}, domain.ErrNotFound
	}

	principalID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return domain.Actor{}, err
	}

	principal, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		return domain.Actor{}, err
	}

	roles, err := s.principals.RolesOf(ctx, principal.ID)
	if err != nil {
		return domain.Actor{}, err
	}

	return domain.Actor{
		ID:    principal.ID,
		Name:  principal.Name,
		Roles: roles,
	}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	principalID, err := s.sessions.Lookup(ctx, token)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}

	if s.audit != nil && principalID != "" {
		s.audit.Record(ctx, domain.Actor{ID: principalID}, "auth.logout", nil)
	}

	return nil
}

// EnsureAdmin seeds or upgrades the configured admin account at startup.
// Safe to call on every boot.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("admin seed needs email and password: %w", domain.ErrValidation)
	}

	existing, err := s.principals.FindByEmail(ctx, email)
	if err == nil {
		if err := s.principals.EnsureRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return err
		}
		logger.Info("identity: admin role ensured", "email", email)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}

	now := s.clock.Now()
	principal := domain.Principal{
		ID:           domain.PrincipalID(s.ids.New()),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.principals.Create(ctx, principal, domain.RoleAdmin); err != nil {
		return err
	}

	logger.Info("identity: admin account created", "email", email)
	return nil
}

func validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("a valid email is required: %w", domain.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must have at least %d characters: %w", minPasswordLength, domain.ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.IdentityService = (*Service)(nil)
