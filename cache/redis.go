package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBackend keeps entries in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to addr and pings it.
//
// Arguments:
// - ctx: Bounds the ping.
// - addr: host:port of the server.
// - password: Optional password.
// - log: Receives the connection line. Nil uses the standard logger.
//
// Returns:
// - *RedisBackend: The backend.
// - error: If the server does not answer.
func NewRedisBackend(ctx context.Context, addr, password string, log logrus.FieldLogger) (*RedisBackend, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", addr)
	}
	log.WithField("addr", addr).Info("connected to redis")

	return &RedisBackend{client: client}, nil
}

// Get reads key; a missing key is not an error.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set writes key with expiration ttl.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
