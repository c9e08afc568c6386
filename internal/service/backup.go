package service

import (
	"context"

	"github.com/icberg-810202/tilecatread/internal/backup"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// ExportData returns the current user's document as a backup envelope and
// the file name it should be saved under. The password hash is never
// exported.
func (m *Manager) ExportData(ctx context.Context) (*backup.Envelope, string, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, "", err
	}
	doc, err := m.fetchStrict(ctx, username)
	if err != nil {
		return nil, "", err
	}
	now := m.now()
	env := backup.NewEnvelope(doc, now)
	m.logger.Info("data exported",
		"username", username,
		"books", env.Counts.Books,
		"quotes", env.Counts.Quotes)
	return env, backup.Filename(username, now), nil
}

// ImportData restores a backup payload into the current user's document.
// The payload is parsed before anything is read or written, so a malformed
// file leaves the stored document untouched.
func (m *Manager) ImportData(ctx context.Context, payload []byte, opts backup.RestoreOptions) (backup.RestoreResult, error) {
	env, err := backup.Parse(payload)
	if err != nil {
		return backup.RestoreResult{}, err
	}
	return m.Restore(ctx, env, opts)
}

// Restore applies an already parsed envelope to the current user's document.
func (m *Manager) Restore(ctx context.Context, env *backup.Envelope, opts backup.RestoreOptions) (backup.RestoreResult, error) {
	username, err := m.sessionUser()
	if err != nil {
		return backup.RestoreResult{}, err
	}
	if opts.Mode == "" {
		opts.Mode = backup.RestoreModeReplace
	}
	if !opts.Mode.Valid() {
		return backup.RestoreResult{}, domainerrors.Validationf("unknown restore mode %q", opts.Mode)
	}
	if !opts.MergeStrategy.Valid() {
		return backup.RestoreResult{}, domainerrors.Validationf("unknown merge strategy %q", opts.MergeStrategy)
	}

	var res backup.RestoreResult
	doc, err := m.mutate(ctx, username, func(doc *domain.Document) error {
		res = backup.Apply(doc, env, opts)
		if _, err := doc.EnsureUniqueIDs(m.newID); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "assign ids")
		}
		return nil
	})
	if err != nil {
		return backup.RestoreResult{}, err
	}
	m.mirrorSelection(doc)

	m.logger.Info("data imported",
		"username", username,
		"source_user", env.Username,
		"mode", res.Mode,
		"books", res.Books)
	return res, nil
}
