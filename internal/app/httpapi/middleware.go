package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusvote/campusvote/internal/domain"
)

type contextKey string

const actorContextKey contextKey = "actor"

// authenticated resolves the bearer token into an Actor before calling
// next. Handlers behind it can rely on actorFrom returning a populated
// actor.
func (a *API) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		actor, err := a.identity.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired or unknown"})
				return
			}
			a.logger.Error("resolve session", "err", err)
			respondError(w, err)
			return
		}

		next(w, r.WithContext(withActor(r.Context(), actor)))
	}
}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorContextKey).(domain.Actor)
	return actor
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
