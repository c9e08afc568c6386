package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/backup"
	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/device"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/playback"
	"github.com/icberg-810202/tilecatread/internal/remote"
	"github.com/icberg-810202/tilecatread/internal/search"
	"github.com/icberg-810202/tilecatread/internal/validation"
)

const testPassword = "secret123"

// flakyStore wraps a Memory store and fails reads or writes on demand.
type flakyStore struct {
	*remote.Memory

	mu        sync.Mutex
	failRead  bool
	failWrite bool
	writes    int
}

func (f *flakyStore) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	f.mu.Lock()
	fail := f.failRead
	f.mu.Unlock()
	if fail {
		return nil, domainerrors.RemoteRead(errors.New("connection refused"), "fetch document for %s", username)
	}
	return f.Memory.FetchDocument(ctx, username)
}

func (f *flakyStore) WriteDocument(ctx context.Context, doc *domain.Document) error {
	f.mu.Lock()
	fail := f.failWrite
	f.writes++
	f.mu.Unlock()
	if fail {
		return errors.New("server returned 500")
	}
	return f.Memory.WriteDocument(ctx, doc)
}

func (f *flakyStore) set(read, write bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = read
	f.failWrite = write
}

type testEnv struct {
	m     *Manager
	store *flakyStore
	cache *cache.Cache
}

func setupManager(t *testing.T) *testEnv {
	t.Helper()

	log := logger.Discard()
	store := &flakyStore{Memory: remote.NewMemory()}
	c := cache.New(cache.NewMemory(), log)
	selections := device.NewSelectionStore(c, log)
	settings := playback.NewSettingsStore(c, log)
	idx, err := search.New(search.Options{Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	m := NewManager(Deps{
		Remote:     store,
		Cache:      c,
		Selections: selections,
		Settings:   settings,
		Player:     playback.NewPlayer(settings, selections, rand.New(rand.NewPCG(1, 2)), log),
		Index:      idx,
		Hasher:     auth.NewHasher(auth.Params{Memory: 64, Iterations: 1, Parallelism: 1}),
		Validator:  validation.New(),
		Logger:     log,
	})
	require.NoError(t, m.Initialize(context.Background()))
	return &testEnv{m: m, store: store, cache: c}
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()
	_, err := e.m.RegisterUser(context.Background(), username, testPassword)
	require.NoError(t, err)
}

func (e *testEnv) addBook(t *testing.T, name string) *domain.Book {
	t.Helper()
	b, err := e.m.AddBook(context.Background(), "", BookInput{Name: name})
	require.NoError(t, err)
	return b
}

func TestManager_NotReadyBeforeInitialize(t *testing.T) {
	log := logger.Discard()
	m := NewManager(Deps{
		Remote:    remote.NewMemory(),
		Cache:     cache.New(cache.NewMemory(), log),
		Validator: validation.New(),
		Logger:    log,
	})

	assert.Equal(t, StateUninitialized, m.State())
	_, err := m.UserBooks(context.Background(), "alice")
	assert.ErrorIs(t, err, domainerrors.ErrNotReady)
}

func TestManager_InitializeRestoresCachedSession(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")

	log := logger.Discard()
	m := NewManager(Deps{
		Remote:    env.store,
		Cache:     env.cache,
		Validator: validation.New(),
		Logger:    log,
	})
	require.NoError(t, m.Initialize(context.Background()))

	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "alice", m.CurrentUser())
}

func TestManager_Register(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	user, err := env.m.RegisterUser(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice", env.m.CurrentUser())

	doc, err := env.store.Memory.FetchDocument(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.PasswordHash)
	assert.NotEqual(t, testPassword, doc.PasswordHash)
	assert.Empty(t, doc.Books)

	var cached cachedDocument
	require.True(t, env.cache.Load(cache.KeyUserData, &cached))
	assert.Equal(t, "alice", cached.Username)
	assert.Empty(t, cached.Data.PasswordHash, "hash is not cached")
}

func TestManager_RegisterDuplicate(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")

	_, err := env.m.RegisterUser(context.Background(), "alice", "another456")
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateUser)
}

func TestManager_RegisterValidation(t *testing.T) {
	env := setupManager(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", testPassword},
		{"space in username", "al ice", testPassword},
		{"weak password", "alice", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.m.RegisterUser(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestManager_RegisterDuringOutage(t *testing.T) {
	env := setupManager(t)
	env.store.set(true, false)

	_, err := env.m.RegisterUser(context.Background(), "alice", testPassword)
	assert.ErrorIs(t, err, domainerrors.ErrRemoteRead)
	assert.Zero(t, env.store.writes)
}

func TestManager_Authenticate(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	require.NoError(t, env.m.LogoutUser(ctx))

	_, err := env.m.AuthenticateUser(ctx, "alice", "wrong1234")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Empty(t, env.m.CurrentUser())

	_, err = env.m.AuthenticateUser(ctx, "bob", testPassword)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	user, err := env.m.AuthenticateUser(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice", env.m.CurrentUser())
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")

	require.NoError(t, env.m.LogoutUser(ctx))
	require.NoError(t, env.m.LogoutUser(ctx))

	assert.Empty(t, env.m.CurrentUser())
	var cached cachedDocument
	assert.False(t, env.cache.Load(cache.KeyUserData, &cached))

	var last string
	require.True(t, env.cache.Load(cache.KeyLastLoginUser, &last))
	assert.Equal(t, "alice", last)
}

func TestManager_RequiresLogin(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	_, err := env.m.AddBook(ctx, "", BookInput{Name: "Walden"})
	assert.ErrorIs(t, err, domainerrors.ErrNotLoggedIn)
	_, err = env.m.AddQuote(ctx, "b1", QuoteInput{Text: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNotLoggedIn)
	_, _, err = env.m.ExportData(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrNotLoggedIn)
}

func TestManager_AddAndRetrieve(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")

	b, err := env.m.AddBook(ctx, "", BookInput{Name: "  Meditations ", Author: ""})
	require.NoError(t, err)
	assert.Equal(t, "Meditations", b.Name)
	assert.Equal(t, domain.DefaultAuthor, b.Author)
	assert.NotEmpty(t, b.ID)

	q, err := env.m.AddQuote(ctx, b.ID, QuoteInput{Text: " if x<y and y>z then x<z ", Tags: []string{"stoic", "Stoic", " <logic> "}})
	require.NoError(t, err)
	assert.Equal(t, "", q.Page)
	assert.Equal(t, "if x<y and y>z then x<z", q.Text)
	assert.Equal(t, []string{"stoic", "Stoic", "<logic>"}, q.Tags)

	books, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, books[0].Quotes, 1)
	assert.Equal(t, "if x<y and y>z then x<z", books[0].Quotes[0].Text)
	assert.Equal(t, []string{"stoic", "Stoic", "<logic>"}, books[0].Quotes[0].Tags)

	quotes, err := env.m.BookQuotes(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)

	_, err = env.m.BookQuotes(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestManager_UpdateBookAndQuote(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	b := env.addBook(t, "Walden")
	q, err := env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "first"})
	require.NoError(t, err)

	name := "Walden; or, Life in the Woods"
	selected := true
	updated, err := env.m.UpdateBook(ctx, b.ID, BookPatch{Name: &name, Selected: &selected})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, updated.Selected)
	assert.Equal(t, domain.DefaultAuthor, updated.Author)

	uq, err := env.m.UpdateQuote(ctx, b.ID, q.ID, QuoteInput{Text: "second", Page: "12"})
	require.NoError(t, err)
	assert.Equal(t, "second", uq.Text)
	assert.Equal(t, "12", uq.Page)
	assert.Equal(t, []string{}, uq.Tags)

	_, err = env.m.UpdateQuote(ctx, b.ID, "nope", QuoteInput{Text: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestManager_DeleteBookCascades(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	keep := env.addBook(t, "Keep")
	drop := env.addBook(t, "Drop")
	_, err := env.m.AddQuote(ctx, drop.ID, QuoteInput{Text: "gone"})
	require.NoError(t, err)
	_, err = env.m.SaveSelectedBooksForDevice(ctx, "device-a", []string{keep.ID, drop.ID})
	require.NoError(t, err)

	require.NoError(t, env.m.DeleteBook(ctx, drop.ID))

	books, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, keep.ID, books[0].ID)

	ids, err := env.m.SelectedBooksForDevice(ctx, "device-a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids)

	assert.ErrorIs(t, env.m.DeleteBook(ctx, drop.ID), domainerrors.ErrNotFound)
}

func TestManager_DeleteBookDeselectsItsQuotes(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	keep := env.addBook(t, "Keep")
	drop := env.addBook(t, "Drop")
	kq, err := env.m.AddQuote(ctx, keep.ID, QuoteInput{Text: "stays"})
	require.NoError(t, err)
	dq, err := env.m.AddQuote(ctx, drop.ID, QuoteInput{Text: "goes"})
	require.NoError(t, err)
	for _, ref := range []domain.QuoteRef{{BookID: keep.ID, QuoteID: kq.ID}, {BookID: drop.ID, QuoteID: dq.ID}} {
		_, err = env.m.ToggleQuoteSelection(ctx, ref.BookID, ref.QuoteID)
		require.NoError(t, err)
	}
	_, err = env.m.SaveSelectedBooksForDevice(ctx, env.m.DeviceID(), []string{keep.ID, drop.ID})
	require.NoError(t, err)

	require.NoError(t, env.m.DeleteBook(ctx, drop.ID))

	settings, err := env.m.PlaybackSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.QuoteRef{{BookID: keep.ID, QuoteID: kq.ID}}, settings.SelectedQuotes)

	ids, err := env.m.SelectedBooksForDevice(ctx, env.m.DeviceID(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids)
}

func TestManager_AddQuoteChecksBookBeforeInput(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	b := env.addBook(t, "Walden")

	_, err := env.m.AddQuote(ctx, "missing", QuoteInput{Text: ""})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.m.UpdateQuote(ctx, b.ID, "missing", QuoteInput{Text: ""})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestManager_DeleteQuoteDeselects(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	b := env.addBook(t, "Walden")
	q, err := env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "simplify"})
	require.NoError(t, err)

	selected, err := env.m.ToggleQuoteSelection(ctx, b.ID, q.ID)
	require.NoError(t, err)
	assert.True(t, selected)

	require.NoError(t, env.m.DeleteQuote(ctx, b.ID, q.ID))

	settings, err := env.m.PlaybackSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.SelectedQuotes)
	assert.ErrorIs(t, env.m.DeleteQuote(ctx, b.ID, q.ID), domainerrors.ErrNotFound)
}

func TestManager_DeviceSelectionsAreIsolated(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	a := env.addBook(t, "A")
	b := env.addBook(t, "B")

	_, err := env.m.SaveSelectedBooksForDevice(ctx, "device-1", []string{a.ID, a.ID})
	require.NoError(t, err)
	_, err = env.m.SaveSelectedBooksForDevice(ctx, "device-2", []string{b.ID})
	require.NoError(t, err)

	one, err := env.m.SelectedBooksForDevice(ctx, "device-1", "")
	require.NoError(t, err)
	two, err := env.m.SelectedBooksForDevice(ctx, "device-2", "")
	require.NoError(t, err)
	none, err := env.m.SelectedBooksForDevice(ctx, "device-3", "")
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID}, one)
	assert.Equal(t, []string{b.ID}, two)
	assert.Equal(t, []string{}, none)
}

func TestManager_SelectedBooksWithoutUser(t *testing.T) {
	env := setupManager(t)

	ids, err := env.m.SelectedBooksForDevice(context.Background(), "device-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)
}

func TestManager_FailedWriteLeavesCacheUnchanged(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	env.addBook(t, "Before")

	var before cachedDocument
	require.True(t, env.cache.Load(cache.KeyUserData, &before))

	env.store.set(false, true)
	_, err := env.m.AddBook(ctx, "", BookInput{Name: "After"})
	assert.ErrorIs(t, err, domainerrors.ErrRemoteWrite)

	var after cachedDocument
	require.True(t, env.cache.Load(cache.KeyUserData, &after))
	require.Len(t, after.Data.Books, 1)
	assert.Equal(t, "Before", after.Data.Books[0].Name)
}

func TestManager_ReadsDegradeDuringOutage(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	env.addBook(t, "Walden")
	env.store.set(true, false)

	books, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, books)

	// mutations refuse to build on a document they could not read
	_, err = env.m.AddBook(ctx, "", BookInput{Name: "Second"})
	assert.ErrorIs(t, err, domainerrors.ErrRemoteRead)

	env.store.set(false, false)
	books, err = env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestManager_ConcurrentMutationsAreSerialized(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.m.AddBook(context.Background(), "", BookInput{Name: "Book"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	books, err := env.m.UserBooks(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, books, n)
}

func TestManager_SearchBooks(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")
	_, err := env.m.AddBook(context.Background(), "", BookInput{Name: "Walden", Author: "Thoreau"})
	require.NoError(t, err)
	env.addBook(t, "Meditations")

	found, err := env.m.SearchBooks(context.Background(), "thor")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Walden", found[0].Name)
}

func TestManager_SearchQuotes(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	b := env.addBook(t, "Walden")
	_, err := env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "Simplify, simplify."})
	require.NoError(t, err)
	_, err = env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "Heaven is under our feet."})
	require.NoError(t, err)

	res, err := env.m.SearchQuotes(ctx, "heaven", 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Heaven is under our feet.", res.Hits[0].Text)

	_, err = env.m.SearchQuotes(ctx, "  ", 10)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestManager_ExportImportRoundTrip(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")
	b := env.addBook(t, "Walden")
	_, err := env.m.AddQuote(ctx, b.ID, QuoteInput{Text: "Simplify.", Page: "91", Tags: []string{"life"}})
	require.NoError(t, err)

	env.m.now = func() time.Time { return time.UnixMilli(1717000000000) }
	envlp, name, err := env.m.ExportData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tilecatread_backup_alice_1717000000000.json", name)
	assert.Empty(t, envlp.Data.PasswordHash)
	payload, err := backup.Encode(envlp)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "passwordHash")

	require.NoError(t, env.m.DeleteBook(ctx, b.ID))

	res, err := env.m.ImportData(ctx, payload, backup.DefaultRestoreOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Books)

	books, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Walden", books[0].Name)
	assert.Equal(t, "91", books[0].Quotes[0].Page)

	// the account still logs in after the import
	require.NoError(t, env.m.LogoutUser(ctx))
	_, err = env.m.AuthenticateUser(ctx, "alice", testPassword)
	require.NoError(t, err)
}

func TestManager_ImportAssignsMissingIDs(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")

	payload := `{"username": "alice", "data": {"books": [{"name": "Old", "author": "A", "quotes": ["first"]}]}}`
	_, err := env.m.ImportData(context.Background(), []byte(payload), backup.DefaultRestoreOptions())
	require.NoError(t, err)

	books, err := env.m.UserBooks(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.NotEmpty(t, books[0].ID)
	assert.NotEmpty(t, books[0].Quotes[0].ID)
}

func TestManager_ImportReplacesDuplicateIDs(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	env.register(t, "alice")

	payload := `{"username": "alice", "data": {"books": [
		{"id": "dup", "name": "First", "quotes": [{"id": "q", "text": "a"}, {"id": "q", "text": "b"}]},
		{"id": "dup", "name": "Second", "quotes": []}
	]}}`
	_, err := env.m.ImportData(ctx, []byte(payload), backup.DefaultRestoreOptions())
	require.NoError(t, err)

	books, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "dup", books[0].ID)
	assert.NotEqual(t, books[0].ID, books[1].ID)
	require.Len(t, books[0].Quotes, 2)
	assert.Equal(t, "q", books[0].Quotes[0].ID)
	assert.NotEqual(t, "q", books[0].Quotes[1].ID)

	// both books stay reachable by id
	require.NoError(t, env.m.DeleteBook(ctx, books[1].ID))
	left, err := env.m.UserBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "First", left[0].Name)
}

func TestManager_ImportRejectsMalformedPayload(t *testing.T) {
	env := setupManager(t)
	env.register(t, "alice")
	env.addBook(t, "Walden")
	writes := env.store.writes

	_, err := env.m.ImportData(context.Background(), []byte(`{"books": []}`), backup.DefaultRestoreOptions())
	assert.ErrorIs(t, err, domainerrors.ErrFormat)
	assert.Equal(t, writes, env.store.writes)

	_, err = env.m.ImportData(context.Background(), []byte(`{"username": "alice", "data": {}}`),
		backup.RestoreOptions{Mode: "overwrite"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
