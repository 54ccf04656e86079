// Package notify publishes assessment events for downstream consumers
// (dashboards, retraining data collectors).
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gere2/AIGNITE/internal/models"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "aignite:assessments"

const (
	EventRecorded = "assessment.recorded"
	EventDeleted  = "assessment.deleted"
)

// Event is the JSON payload published for every store change.
type Event struct {
	Type          string                `json:"type"`
	ID            int64                 `json:"id"`
	Label         *models.RiskLabel     `json:"label,omitempty"`
	Probabilities *models.Probabilities `json:"probabilities,omitempty"`
	At            time.Time             `json:"at"`
}

// Recorded builds the event for a persisted record.
func Recorded(rec *models.PredictionRecord) Event {
	label := rec.Prediction.Label
	probs := rec.Prediction.Probabilities
	return Event{Type: EventRecorded, ID: rec.ID, Label: &label, Probabilities: &probs, At: rec.CreatedAt}
}

// Deleted builds the event for a removed record.
func Deleted(id int64, at time.Time) Event {
	return Event{Type: EventDeleted, ID: id, At: at.UTC()}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(ctx context.Context, redisURL, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisPublisher(client, channel), nil
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Channel returns the channel events are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
