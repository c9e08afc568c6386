package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes an export file on disk.
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dir manages export files in one directory.
type Dir struct {
	path   string
	logger *slog.Logger
}

// NewDir creates a Dir rooted at path. The directory is created on first
// write.
func NewDir(path string, logger *slog.Logger) *Dir {
	return &Dir{path: path, logger: logger}
}

// Path returns the directory.
func (d *Dir) Path() string { return d.path }

// Write stores env under its conventional file name and returns the path.
func (d *Dir) Write(env *Envelope, now time.Time) (string, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := Encode(env)
	if err != nil {
		return "", err
	}

	path := filepath.Join(d.path, Filename(env.Username, now))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize backup: %w", err)
	}

	d.logger.Info("backup written",
		"path", path,
		"username", env.Username,
		"books", env.Counts.Books,
		"quotes", env.Counts.Quotes)
	return path, nil
}

// List returns the export files in the directory, newest first.
func (d *Dir) List() ([]Info, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !IsBackupFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			ID:        strings.TrimSuffix(entry.Name(), ".json"),
			Path:      filepath.Join(d.path, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Read loads and parses the export with id.
func (d *Dir) Read(id string) (*Envelope, error) {
	return ReadFile(filepath.Join(d.path, id+".json"))
}

// ReadFile loads and parses the export at path.
func ReadFile(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return Parse(data)
}

// Delete removes the export with id.
func (d *Dir) Delete(id string) error {
	path := filepath.Join(d.path, id+".json")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}
	return os.Remove(path)
}

// IsBackupFile reports whether name looks like an export file.
func IsBackupFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json")
}
