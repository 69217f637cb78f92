package broker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReportsChannel is the redis pub/sub channel carrying report events.
const ReportsChannel = "wastetrack:reports"

// RedisEventBroker implements EventBroker using redis pub/sub
type RedisEventBroker struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

func NewRedisEventBroker(client *redis.Client) *RedisEventBroker {
	return &RedisEventBroker{client: client}
}

// NewRedisEventBrokerFromURL dials redisURL and checks the connection.
func NewRedisEventBrokerFromURL(ctx context.Context, redisURL string) (*RedisEventBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisEventBroker(client), nil
}

func (r *RedisEventBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, ReportsChannel, data).Err()
}

func (r *RedisEventBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, ReportsChannel)

	// Wait for the subscription to be confirmed so no publish after return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	r.mu.Lock()
	r.subs = append(r.subs, pubsub)
	r.mu.Unlock()

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case redisMsg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(redisMsg.Payload), &event); err != nil {
					logger.Log.Warn("Dropping malformed report event",
						zap.String("channel", redisMsg.Channel),
						zap.Error(err),
					)
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (r *RedisEventBroker) Close() error {
	r.mu.Lock()
	for _, pubsub := range r.subs {
		pubsub.Close()
	}
	r.subs = nil
	r.mu.Unlock()

	return r.client.Close()
}
