package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/redis/go-redis/v9"
)

var _ credentials.KV = (*KV)(nil)

// KV stores credentials as plain Redis strings under prefix+key.
type KV struct {
	client redis.Cmdable
	prefix string
}

func New(client redis.Cmdable, prefix string) *KV {
	return &KV{
		client: client,
		prefix: prefix,
	}
}

// Dial connects to addr and verifies the connection with a PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediskv.Dial %s: %w", addr, err)
	}
	return client, nil
}

func (kv *KV) key(k string) string {
	return kv.prefix + k
}

func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := kv.client.Get(ctx, kv.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("rediskv get %s: %w", key, err)
	}
	return val, true, nil
}

func (kv *KV) Set(ctx context.Context, key, value string) error {
	if err := kv.client.Set(ctx, kv.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("rediskv set %s: %w", key, err)
	}
	return nil
}

func (kv *KV) Remove(ctx context.Context, key string) error {
	if err := kv.client.Del(ctx, kv.key(key)).Err(); err != nil {
		return fmt.Errorf("rediskv del %s: %w", key, err)
	}
	return nil
}
