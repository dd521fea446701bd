package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisPrefix  = "loan-affordability:"
	defaultRedisTimeout = time.Second
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
	// Timeout bounds each round trip to Redis.
	Timeout time.Duration
}

// RedisStore keeps results in Redis so that several server instances share
// one cache. Redis expires entries itself; a failed lookup is reported as a
// miss and the caller recomputes.
type RedisStore struct {
	client  *redis.Client
	logger  *zap.Logger
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore creates a store backed by the Redis server at opts.Addr. The
// connection is established lazily on first use.
func NewRedisStore(logger *zap.Logger, opts RedisOptions) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = constants.DefaultCacheTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRedisTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		MaxRetries:   -1,
	})

	return &RedisStore{
		client:  client,
		logger:  logger,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
	}
}

func (s *RedisStore) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get returns the cached result for key.
func (s *RedisStore) Get(key string) (loans.Result, bool) {
	ctx, cancel := s.requestContext()
	defer cancel()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis cache lookup failed",
				zap.String("op", "cache.RedisStore.Get"),
				zap.Error(err),
			)
		}
		return loans.Result{}, false
	}

	result, err := decodeResult(data)
	if err != nil {
		s.logger.Warn("discarding undecodable cache entry",
			zap.String("op", "cache.RedisStore.Get"),
			zap.String("key", key),
			zap.Error(err),
		)
		return loans.Result{}, false
	}
	return result, true
}

// Set stores result under key for the store's TTL.
func (s *RedisStore) Set(key string, result loans.Result) error {
	data, err := encodeResult(result)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(key string) {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("redis cache delete failed",
			zap.String("op", "cache.RedisStore.Delete"),
			zap.Error(err),
		)
	}
}

// Len counts the keys under the store's prefix. It returns 0 when Redis is
// unreachable.
func (s *RedisStore) Len() int {
	ctx, cancel := s.requestContext()
	defer cancel()

	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("redis cache scan failed",
			zap.String("op", "cache.RedisStore.Len"),
			zap.Error(err),
		)
		return 0
	}
	return count
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *RedisStore) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("failed to close redis client",
			zap.String("op", "cache.RedisStore.Close"),
			zap.Error(err),
		)
	}
}

func encodeResult(result loans.Result) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode cached result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (loans.Result, error) {
	var result loans.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return loans.Result{}, fmt.Errorf("decode cached result: %w", err)
	}
	return result, nil
}
