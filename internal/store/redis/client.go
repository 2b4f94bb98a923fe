package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client owns the Redis connection shared by the watermark, nonce and
// queue stores.
type Client struct {
	client *redis.Client
}

func NewClient(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Wrap uses an existing connection.
func Wrap(client *redis.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Redis() *redis.Client {
	return c.client
}
