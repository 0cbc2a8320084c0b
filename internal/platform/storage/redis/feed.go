package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/logger"
)

// Feed fans committed ballot events out over Redis pub/sub. Each election
// gets its own channel; SubscribeAll pattern-matches the whole prefix.
type Feed struct {
	client *redis.Client
	prefix string
}

func NewFeed(client *redis.Client, prefix string) *Feed {
	if prefix == "" {
		prefix = "ballots"
	}
	return &Feed{
		client: client,
		prefix: prefix,
	}
}

func (f *Feed) Publish(ctx context.Context, event domain.BallotEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis feed: marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(event.ElectionID), payload).Err(); err != nil {
		return fmt.Errorf("redis feed: publish: %w", err)
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context, electionID domain.ElectionID) (<-chan domain.BallotEvent, func(), error) {
	pubsub := f.client.Subscribe(ctx, f.channel(electionID))
	return f.drain(ctx, pubsub)
}

func (f *Feed) SubscribeAll(ctx context.Context) (<-chan domain.BallotEvent, func(), error) {
	pubsub := f.client.PSubscribe(ctx, f.prefix+":*")
	return f.drain(ctx, pubsub)
}

func (f *Feed) drain(ctx context.Context, pubsub *redis.PubSub) (<-chan domain.BallotEvent, func(), error) {
	// Waiting for the subscription confirmation means events published
	// right after Subscribe returns are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis feed: subscribe: %w", err)
	}

	events := make(chan domain.BallotEvent, 16)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event domain.BallotEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Error("redis feed: dropping malformed event", "error", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return events, cancel, nil
}

func (f *Feed) channel(electionID domain.ElectionID) string {
	return fmt.Sprintf("%s:%s", f.prefix, electionID)
}

var _ domain.BallotFeed = (*Feed)(nil)
