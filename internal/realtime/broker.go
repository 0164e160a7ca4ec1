package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker fans readings out to every API server replica
type Broker interface {
	Publish(ctx context.Context, r Reading) error
	// Subscribe calls fn for every published reading until ctx is done.
	Subscribe(ctx context.Context, fn func(Reading)) error
	Close() error
}

// NewBroker builds the broker named in the config
func NewBroker(cfg *config.APIServerConfig, lg *zap.Logger) (Broker, error) {
	switch cfg.Realtime.Broker {
	case "", "memory":
		return NewMemoryBroker(), nil
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisBroker(client, cfg.Realtime.Channel, lg), nil
	default:
		return nil, fmt.Errorf("unsupported realtime broker: %s", cfg.Realtime.Broker)
	}
}

// MemoryBroker delivers readings in process
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[int]func(Reading)
	next int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]func(Reading))}
}

func (b *MemoryBroker) Publish(_ context.Context, r Reading) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(r)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, fn func(Reading)) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]func(Reading))
	b.mu.Unlock()
	return nil
}

// RedisBroker publishes readings on a Redis pub/sub channel
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisBroker(client redis.UniversalClient, channel string, lg *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, logger: lg.Named("broker.redis")}
}

func (b *RedisBroker) Publish(ctx context.Context, r Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe returns once the subscription is confirmed
func (b *RedisBroker) Subscribe(ctx context.Context, fn func(Reading)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var r Reading
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					b.logger.Warn("dropping malformed reading", zap.Error(err))
					continue
				}
				fn(r)
			}
		}
	}()
	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
