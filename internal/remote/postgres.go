package remote

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

// Postgres stores one JSONB row per user in a hosted Postgres database.
type Postgres struct {
	pool   *pgxpool.Pool
	qb     sq.StatementBuilderType
	logger *slog.Logger
}

// OpenPostgres applies migrations and opens a connection pool.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if err := migratePostgres(dsn, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres document store opened", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &Postgres{
		pool:   pool,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}, nil
}

func migratePostgres(dsn string, logger *slog.Logger) error {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer sqldb.Close()

	driver, err := migratepg.WithInstance(sqldb, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	src, err := iofs.New(postgresMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("postgres schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres migrations applied")
	return nil
}

// FetchDocument implements Store.
func (p *Postgres) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	query, args, err := p.qb.Select("body").From("documents").Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var body []byte
	err = p.pool.QueryRow(ctx, query, args...).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(username)
	}
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	return decodeDocument(body, username)
}

// WriteDocument implements Store.
func (p *Postgres) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query, args, err := p.qb.Insert("documents").
		Columns("username", "body", "updated_at").
		Values(doc.Username, string(data), sq.Expr("now()")).
		Suffix("ON CONFLICT (username) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	if tag.RowsAffected() != 1 {
		return domainerrors.RemoteWrite(nil, "write document for %s: %d rows affected", doc.Username, tag.RowsAffected())
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
