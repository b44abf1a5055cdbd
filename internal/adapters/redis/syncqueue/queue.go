// Package syncqueue stores trips awaiting mirror sync in a Redis set, so pending work survives
// restarts and is shared by every replica.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

const DefaultKey = "seatshare:mirror:pending"

type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Queue implements syncqueue.Queue with SADD/SPOP/SCARD.
type Queue struct {
	client *redis.Client
	key    string
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, opts Options) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, opts.Key), nil
}

func New(client *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{client: client, key: key}
}

func (q *Queue) Push(ctx context.Context, id domain.TripID) error {
	if err := q.client.SAdd(ctx, q.key, string(id)).Err(); err != nil {
		return fmt.Errorf("push pending sync: %w", err)
	}
	return nil
}

func (q *Queue) Pop(ctx context.Context) (domain.TripID, bool, error) {
	v, err := q.client.SPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop pending sync: %w", err)
	}
	return domain.TripID(v), true, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.client.SCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count pending sync: %w", err)
	}
	return int(n), nil
}

func (q *Queue) Close() error { return q.client.Close() }
