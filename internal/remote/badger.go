package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

const badgerDocPrefix = "doc:"

// Badger stores documents in an embedded badger database under doc:<username>.
// It is the default backend behind the document server.
type Badger struct {
	db     *badger.DB
	path   string
	logger *slog.Logger
}

// OpenBadger opens the database at path. readOnly is used by inspection
// tools that must not contend with a running server.
func OpenBadger(path string, readOnly bool, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithReadOnly(readOnly)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = !readOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("badger document store opened", "path", path, "read_only", readOnly)
	return &Badger{db: db, path: path, logger: logger}, nil
}

// Validate implements Validator.
func (b *Badger) Validate() error {
	if b.path == "" {
		return errors.New("badger store has no path")
	}
	return nil
}

// FetchDocument implements Store.
func (b *Badger) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerDocPrefix + username))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(username)
	}
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	return decodeDocument(data, username)
}

// WriteDocument implements Store.
func (b *Badger) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerDocPrefix+doc.Username), data)
	})
	if err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	return nil
}

// Each calls fn for every stored document in key order. Documents that fail
// to decode are logged and skipped.
func (b *Badger) Each(ctx context.Context, fn func(*domain.Document) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerDocPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			username := string(item.Key()[len(badgerDocPrefix):])

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", username, err)
			}
			doc, err := decodeDocument(data, username)
			if err != nil {
				b.logger.Warn("skipping undecodable document", "username", username, "error", err)
				continue
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *Badger) Close() error {
	b.logger.Info("closing badger document store")
	return b.db.Close()
}
