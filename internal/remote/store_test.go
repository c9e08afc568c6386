package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

func sampleDocument(username string) *domain.Document {
	doc := domain.NewDocument(username)
	doc.PasswordHash = "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"
	doc.Books = []domain.Book{{
		ID:     "book-1",
		Name:   "Meditations",
		Author: "Marcus Aurelius",
		Quotes: []domain.Quote{{ID: "quote-1", Text: "The impediment to action advances action.", Tags: []string{"stoic"}}},
	}}
	doc.DeviceSelections["device-a"] = domain.DeviceSelection{SelectedBookIDs: []string{"book-1"}}
	doc.LastUpdated = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return doc
}

// storeContract exercises the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.FetchDocument(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "missing document should be NOT_FOUND, got %v", err)

	doc := sampleDocument("alice")
	require.NoError(t, s.WriteDocument(ctx, doc))

	got, err := s.FetchDocument(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, doc.Username, got.Username)
	assert.Equal(t, doc.PasswordHash, got.PasswordHash)
	assert.Equal(t, doc.Books, got.Books)
	assert.Equal(t, doc.DeviceSelections["device-a"].SelectedBookIDs, got.DeviceSelections["device-a"].SelectedBookIDs)
	assert.True(t, doc.LastUpdated.Equal(got.LastUpdated))

	// whole-document overwrite, not a merge
	doc.Books = []domain.Book{}
	doc.DeviceSelections = nil
	require.NoError(t, s.WriteDocument(ctx, doc))

	got, err = s.FetchDocument(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got.Books)
	assert.NotNil(t, got.Books)
	assert.Empty(t, got.DeviceSelections)

	err = s.WriteDocument(ctx, &domain.Document{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestMemory_Contract(t *testing.T) {
	storeContract(t, NewMemory())
}

func TestBadger_Contract(t *testing.T) {
	s, err := OpenBadger(t.TempDir(), false, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestBadger_Each(t *testing.T) {
	s, err := OpenBadger(t.TempDir(), false, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.WriteDocument(ctx, sampleDocument("alice")))
	require.NoError(t, s.WriteDocument(ctx, sampleDocument("bob")))

	var names []string
	require.NoError(t, s.Each(ctx, func(d *domain.Document) error {
		names = append(names, d.Username)
		return nil
	}))
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestSQLite_Contract(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "documents.db"), logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestPostgres_Contract(t *testing.T) {
	dsn := os.Getenv("TILECATREAD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TILECATREAD_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestRedis_Contract(t *testing.T) {
	addr := os.Getenv("TILECATREAD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TILECATREAD_TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), RedisOptions{Addr: addr}, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestS3_Contract(t *testing.T) {
	endpoint := os.Getenv("TILECATREAD_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TILECATREAD_TEST_S3_ENDPOINT not set")
	}
	s, err := OpenS3(context.Background(), S3Options{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TILECATREAD_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("TILECATREAD_TEST_S3_SECRET_KEY"),
		Bucket:    "tilecatread-test",
	}, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

type failingStore struct{ Memory }

func (f *failingStore) FetchDocument(context.Context, string) (*domain.Document, error) {
	return nil, domainerrors.RemoteRead(errors.New("connection reset"), "fetch")
}

func TestFetchOrDefault(t *testing.T) {
	ctx := context.Background()

	m := NewMemory()
	require.NoError(t, m.WriteDocument(ctx, sampleDocument("alice")))
	assert.Len(t, FetchOrDefault(ctx, m, "alice", logger.Discard()).Books, 1)

	empty := FetchOrDefault(ctx, m, "carol", logger.Discard())
	assert.Equal(t, "carol", empty.Username)
	assert.Empty(t, empty.Books)
	assert.False(t, empty.Registered())

	degraded := FetchOrDefault(ctx, &failingStore{}, "alice", logger.Discard())
	assert.Equal(t, domain.NewDocument("alice"), degraded)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.RemoteConfig{Backend: config.BackendMemory}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.RemoteConfig{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "d.db")}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.RemoteConfig{Backend: config.BackendHTTP}, logger.Discard())
	assert.Error(t, err)
}
