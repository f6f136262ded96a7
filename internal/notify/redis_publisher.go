// Package notify fans history events out to other processes over Redis.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bloomgrid/api/internal/history"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel history events are published on.
const DefaultChannel = "bloomgrid:history"

var ErrNoEvent = errors.New("no history event recorded")

// Message is one published history event.
type Message struct {
	Workspace string        `json:"workspace"`
	Event     history.Event `json:"event"`
}

// RedisPublisher publishes history events on a channel and keeps the last
// event of each workspace under its own key.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *log.Logger
}

// NewRedisPublisher connects to redisURL and checks the connection.
func NewRedisPublisher(redisURL, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisPublisherWithClient(client, channel), nil
}

// NewRedisPublisherWithClient creates a publisher from an existing client.
func NewRedisPublisherWithClient(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		prefix:  channel + ":last:",
		ttl:     24 * time.Hour,
		timeout: 2 * time.Second,
		logger:  log.Default(),
	}
}

// SetLogger replaces the logger used for publish failures.
func (p *RedisPublisher) SetLogger(logger *log.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *RedisPublisher) key(workspace string) string {
	return p.prefix + workspace
}

// Publish sends ev on the channel and records it as the workspace's last
// event.
func (p *RedisPublisher) Publish(ctx context.Context, workspace string, ev history.Event) error {
	data, err := json.Marshal(Message{Workspace: workspace, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(workspace), data, p.ttl)
	pipe.Publish(ctx, p.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish history event: %w", err)
	}
	return nil
}

// Last returns the most recent event published for workspace.
func (p *RedisPublisher) Last(ctx context.Context, workspace string) (Message, error) {
	data, err := p.client.Get(ctx, p.key(workspace)).Bytes()
	if err == redis.Nil {
		return Message{}, ErrNoEvent
	}
	if err != nil {
		return Message{}, fmt.Errorf("lookup history event: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal history event: %w", err)
	}
	return msg, nil
}

// Forget drops the last event of workspace.
func (p *RedisPublisher) Forget(ctx context.Context, workspace string) error {
	if err := p.client.Del(ctx, p.key(workspace)).Err(); err != nil {
		return fmt.Errorf("forget history event: %w", err)
	}
	return nil
}

// Notifier adapts the publisher to a workspace's history manager. Publish
// failures are logged; history never waits on Redis for longer than the
// publish timeout.
func (p *RedisPublisher) Notifier(workspace string) history.Notifier {
	return history.NotifierFunc(func(ev history.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, workspace, ev); err != nil {
			p.logger.Printf("notify: workspace %s: %v", workspace, err)
		}
	})
}

// Subscribe listens on the channel until ctx is done. The subscription is
// confirmed before Subscribe returns.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan Message, error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					p.logger.Printf("notify: drop malformed message: %v", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks if Redis is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
