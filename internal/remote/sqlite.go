package remote

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// SQLite stores one row per user in a local SQLite file.
type SQLite struct {
	db     *sql.DB
	qb     sq.StatementBuilderType
	logger *slog.Logger
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	logger.Info("sqlite document store opened", "path", path)
	return &SQLite{
		db:     db,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: logger,
	}, nil
}

// FetchDocument implements Store.
func (s *SQLite) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	query, args, err := s.qb.Select("body").From("documents").Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var body string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(username)
	}
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	return decodeDocument([]byte(body), username)
}

// WriteDocument implements Store.
func (s *SQLite) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query, args, err := s.qb.Insert("documents").
		Columns("username", "body", "updated_at").
		Values(doc.Username, string(data), formatTime(time.Now())).
		Suffix("ON CONFLICT(username) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
