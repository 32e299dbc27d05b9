package progress

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/urbanrisk/crimeml/pkg/errors"
	"github.com/urbanrisk/crimeml/pkg/log"
)

// Broadcaster is the narrow contract to the message-broadcast
// collaborator. Publishing is fire-and-forget: the tracker logs failures
// and never lets them abort a run.
type Broadcaster interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// LogBroadcaster writes progress events to the structured log. It is the
// default when no real-time transport is configured.
type LogBroadcaster struct{}

func (LogBroadcaster) Publish(_ context.Context, snap Snapshot) error {
	slog.Info("progress",
		log.RunIDKey, snap.EntityID,
		log.StageKey, snap.Stage,
		log.PercentKey, snap.Percent,
		"message", snap.Message,
	)
	return nil
}

// RedisBroadcaster publishes progress events on a redis pub/sub channel
// for the serving tier to fan out to clients.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

// NewRedisBroadcaster creates a RedisBroadcaster on the given channel.
func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = "crimeml:progress"
	}
	return &RedisBroadcaster{client: client, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode progress event")
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "publish progress event")
	}
	return nil
}
