// Package backup exports a user's document to a JSON file and restores it,
// either replacing the current books or merging them.
package backup

import "errors"

var (
	// ErrVersionMismatch indicates the backup was written by an unknown format version.
	ErrVersionMismatch = errors.New("backup version not supported")

	// ErrBackupNotFound indicates the requested backup file does not exist.
	ErrBackupNotFound = errors.New("backup not found")
)
