package throttle

import (
	"context"

	"github.com/campusvote/campusvote/internal/domain"
)

// Noop is the disabled throttle strategy.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Allow(ctx context.Context, key string) error {
	return nil
}

var _ domain.LoginThrottle = Noop{}
