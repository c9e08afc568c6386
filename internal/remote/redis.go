package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

const redisKeyPrefix = "tilecatread:doc:"

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis stores each document as a plain string value without expiry.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	logger.Info("redis document store connected", "addr", opts.Addr, "db", opts.DB)
	return &Redis{rdb: rdb, logger: logger}, nil
}

// FetchDocument implements Store.
func (r *Redis) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(username)
	}
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	return decodeDocument(data, username)
}

// WriteDocument implements Store.
func (r *Redis) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+doc.Username, data, 0).Err(); err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
