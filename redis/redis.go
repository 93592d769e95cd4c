package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open builds a client for addr, which may be host:port or a redis:// URL.
// Nothing is dialed until the first command, and the pool reconnects on its own
// after an outage.
func Open(addr string) *redis.Client {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	return redis.NewClient(opts)
}

// NewClient opens a client and pings it, failing when redis is not reachable.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := Open(addr)
	if err := Ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	return nil
}
