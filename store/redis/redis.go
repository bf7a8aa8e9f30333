package redis

import (
	"context"
	"errors"
	"time"

	"github.com/aydenstechdungeon/formfield/store"
	goredis "github.com/redis/go-redis/v9"
)

// Store provides a Redis-backed implementation of the store.Storage interface.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewStore wraps client. Every key is namespaced with prefix.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewStore(client, prefix), nil
}

// Get retrieves a key from Redis.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	return val, err
}

// Set stores a key in Redis with an optional expiration time.
func (s *Store) Set(ctx context.Context, key string, val []byte, exp time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, val, exp).Err()
}

// Delete removes a key from Redis.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Publish sends message on the prefixed channel.
func (s *Store) Publish(ctx context.Context, channel string, message []byte) error {
	return s.client.Publish(ctx, s.prefix+channel, message).Err()
}

// Subscribe delivers messages on the prefixed channel to handler until ctx
// is done. It returns once the subscription is confirmed.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	sub := s.client.Subscribe(ctx, s.prefix+channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
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
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}
