package notify

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/juju/errors"

	applog "marketadmin/internal/log"
)

const TopicUserVerified = "user.verified"

// VerifiedEvent is published once per user, when the email is first
// confirmed.
type VerifiedEvent struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	VerifiedAt string `json:"verified_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// RedisPublisher publishes JSON payloads on "<Prefix><topic>" channels.
type RedisPublisher struct {
	Client *redis.Client
	Prefix string
}

func NewRedisPublisher(addr string, db int) *RedisPublisher {
	return &RedisPublisher{
		Client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		Prefix: "marketadmin:",
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(p.Client.Publish(ctx, p.Prefix+topic, b).Err(), "publishing %s", topic)
}

func (p *RedisPublisher) Close() error { return p.Client.Close() }

// LogPublisher records events as info log lines.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	applog.Info(nil, "event."+topic, map[string]any{"payload": payload})
	return nil
}
