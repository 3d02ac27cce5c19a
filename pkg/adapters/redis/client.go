package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Connect opens a client for addr and verifies it with a PING.
func Connect(ctx context.Context, addr, password string, db int) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
