package backup

import (
	"time"

	"github.com/icberg-810202/tilecatread/internal/domain"
)

// RestoreMode determines how imported books meet existing ones.
type RestoreMode string

const (
	// RestoreModeReplace discards the current books and device selections.
	RestoreModeReplace RestoreMode = "replace"

	// RestoreModeMerge combines books by id.
	RestoreModeMerge RestoreMode = "merge"
)

// Valid returns true if the restore mode is recognized.
func (m RestoreMode) Valid() bool {
	switch m {
	case RestoreModeReplace, RestoreModeMerge:
		return true
	default:
		return false
	}
}

// MergeStrategy resolves a book present on both sides in merge mode.
type MergeStrategy string

const (
	// MergeKeepLocal keeps the current version.
	MergeKeepLocal MergeStrategy = "keep_local"

	// MergeKeepBackup uses the imported version.
	MergeKeepBackup MergeStrategy = "keep_backup"

	// MergeNewest uses whichever was updated (or created) last.
	MergeNewest MergeStrategy = "newest"
)

// Valid returns true if the merge strategy is recognized.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepLocal, MergeKeepBackup, MergeNewest:
		return true
	case "": // only meaningful in merge mode
		return true
	default:
		return false
	}
}

// RestoreOptions configures an import.
type RestoreOptions struct {
	Mode          RestoreMode
	MergeStrategy MergeStrategy
}

// DefaultRestoreOptions replaces the current books, matching a plain import.
func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{Mode: RestoreModeReplace}
}

// RestoreResult reports what an import changed.
type RestoreResult struct {
	Mode    RestoreMode `json:"mode"`
	Added   int         `json:"added"`
	Updated int         `json:"updated"`
	Kept    int         `json:"kept"`
	Books   int         `json:"books"`
}

// Apply writes env's books and device selections into current according to
// opts. The username and password hash of current are left untouched.
func Apply(current *domain.Document, env *Envelope, opts RestoreOptions) RestoreResult {
	incoming := env.Data
	incoming.Normalize()
	current.Normalize()

	res := RestoreResult{Mode: opts.Mode}
	if opts.Mode != RestoreModeMerge {
		res.Mode = RestoreModeReplace
		res.Added = len(incoming.Books)
		current.Books = incoming.Books
		current.DeviceSelections = incoming.DeviceSelections
		res.Books = len(current.Books)
		return res
	}

	for _, book := range incoming.Books {
		i := current.FindBook(book.ID)
		if book.ID == "" || i < 0 {
			current.Books = append(current.Books, book)
			res.Added++
			continue
		}
		if pickIncoming(current.Books[i], book, opts.MergeStrategy) {
			current.Books[i] = book
			res.Updated++
		} else {
			res.Kept++
		}
	}
	for deviceID, sel := range incoming.DeviceSelections {
		if existing, ok := current.DeviceSelections[deviceID]; !ok || sel.UpdatedAt.After(existing.UpdatedAt) {
			current.DeviceSelections[deviceID] = sel
		}
	}
	res.Books = len(current.Books)
	return res
}

func pickIncoming(local, incoming domain.Book, strategy MergeStrategy) bool {
	switch strategy {
	case MergeKeepBackup:
		return true
	case MergeNewest:
		return lastChange(incoming).After(lastChange(local))
	default:
		return false
	}
}

func lastChange(b domain.Book) time.Time {
	if b.UpdatedAt.IsZero() {
		return b.CreatedAt
	}
	return b.UpdatedAt
}
