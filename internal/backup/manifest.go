package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// FormatVersion is written into every export. Readers accept envelopes
// without it.
const FormatVersion = "1"

const filePrefix = "tilecatread_backup_"

// Envelope is the export file format.
type Envelope struct {
	Version    string           `json:"version,omitempty"`
	Username   string           `json:"username"`
	ExportDate time.Time        `json:"exportDate"`
	Counts     Counts           `json:"counts"`
	Data       *domain.Document `json:"data"`
}

// Counts summarizes an envelope for listings and sanity checks.
type Counts struct {
	Books   int `json:"books"`
	Quotes  int `json:"quotes"`
	Devices int `json:"devices"`
}

// CountsOf tallies doc.
func CountsOf(doc *domain.Document) Counts {
	if doc == nil {
		return Counts{}
	}
	return Counts{Books: len(doc.Books), Quotes: doc.QuoteCount(), Devices: len(doc.DeviceSelections)}
}

// NewEnvelope wraps doc for export. The password hash is never exported.
func NewEnvelope(doc *domain.Document, now time.Time) *Envelope {
	data := *doc
	data.PasswordHash = ""
	data.Normalize()
	return &Envelope{
		Version:    FormatVersion,
		Username:   doc.Username,
		ExportDate: now.UTC().Truncate(time.Second),
		Counts:     CountsOf(&data),
		Data:       &data,
	}
}

// Filename returns the export file name for username at t.
func Filename(username string, t time.Time) string {
	return fmt.Sprintf("%s%s_%d.json", filePrefix, username, t.UnixMilli())
}

// Encode renders env as indented JSON.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// rawEnvelope keeps exportDate loose so hand-edited files with odd dates
// still import.
type rawEnvelope struct {
	Version    string           `json:"version"`
	Username   string           `json:"username"`
	ExportDate string           `json:"exportDate"`
	Data       *domain.Document `json:"data"`
}

// Parse decodes an export. It fails with a FORMAT error when the payload is
// not JSON or lacks username or data.
func Parse(payload []byte) (*Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, domainerrors.Format("backup is not valid JSON").WithCause(err)
	}
	if strings.TrimSpace(raw.Username) == "" {
		return nil, domainerrors.Format("backup has no username")
	}
	if raw.Data == nil {
		return nil, domainerrors.Format("backup has no data")
	}
	if raw.Version != "" && raw.Version != FormatVersion {
		return nil, domainerrors.Format(ErrVersionMismatch.Error()).WithDetails(map[string]string{"version": raw.Version})
	}

	raw.Data.Normalize()
	env := &Envelope{
		Version:  raw.Version,
		Username: raw.Username,
		Counts:   CountsOf(raw.Data),
		Data:     raw.Data,
	}
	if t, err := time.Parse(time.RFC3339, raw.ExportDate); err == nil {
		env.ExportDate = t
	}
	return env, nil
}
