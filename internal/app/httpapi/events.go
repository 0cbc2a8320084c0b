package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/metrics"
)

const streamHeartbeat = 25 * time.Second

// handleElectionEvents streams committed ballots for one election as
// server-sent events. The subscription lives exactly as long as the
// request context.
func (a *API) handleElectionEvents(w http.ResponseWriter, r *http.Request) {
	electionID := domain.ElectionID(r.PathValue("id"))
	actor := actorFrom(r.Context())

	if _, err := a.elections.Get(r.Context(), actor, electionID); err != nil {
		respondError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, stop, err := a.feed.Subscribe(r.Context(), electionID)
	if err != nil {
		a.logger.Error("subscribe election events", "err", err, "election", electionID)
		respondError(w, fmt.Errorf("ballot feed: %w", domain.ErrDependency))
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.IncActiveVoteStreams()
	defer metrics.DecActiveVoteStreams()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				a.logger.Error("encode ballot event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: ballot\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			// Comment lines keep intermediaries from closing an idle stream.
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
