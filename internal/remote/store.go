// Package remote defines the whole-document store the journal syncs with and
// its interchangeable backends. Every backend implements the same two
// operations: fetch a user's document and overwrite it. There is no partial
// update, so concurrent writers follow last-write-wins.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// Store reads and writes whole user documents.
//
// FetchDocument returns a NOT_FOUND error when the user has no document and
// a REMOTE_READ error on transport failure. WriteDocument returns a
// REMOTE_WRITE error when the backend does not confirm the write.
type Store interface {
	FetchDocument(ctx context.Context, username string) (*domain.Document, error)
	WriteDocument(ctx context.Context, doc *domain.Document) error
	Close() error
}

// Validator is implemented by stores that can check their configuration.
type Validator interface {
	Validate() error
}

// Validate runs s's configuration check when it has one.
func Validate(s Store) error {
	if v, ok := s.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// FetchOrDefault fetches username's document and degrades to the empty
// document shape on any failure. First-time users and transient outages
// therefore look the same to the caller.
func FetchOrDefault(ctx context.Context, s Store, username string, logger *slog.Logger) *domain.Document {
	doc, err := s.FetchDocument(ctx, username)
	if err == nil {
		return doc
	}
	if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		logger.Warn("remote read failed, using empty document", "username", username, "error", err)
	}
	return domain.NewDocument(username)
}

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg config.RemoteConfig, logger *slog.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendHTTP:
		return NewHTTP(HTTPOptions{
			BaseURL:           cfg.URL,
			Token:             cfg.Token,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
	case config.BackendBadger:
		return OpenBadger(cfg.Path, false, logger)
	case config.BackendSQLite:
		return OpenSQLite(cfg.Path, logger)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DSN, logger)
	case config.BackendRedis:
		return OpenRedis(ctx, RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
	case config.BackendS3:
		return OpenS3(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}

func encodeDocument(doc *domain.Document) ([]byte, error) {
	if doc == nil || doc.Username == "" {
		return nil, domainerrors.Validation("document has no username")
	}
	doc.Normalize()
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte, username string) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domainerrors.RemoteRead(err, "decode document for %s", username)
	}
	if doc.Username == "" {
		doc.Username = username
	}
	doc.Normalize()
	return &doc, nil
}

func notFound(username string) error {
	return domainerrors.NotFoundf("no document for user %s", username)
}
