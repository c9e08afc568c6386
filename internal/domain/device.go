package domain

import (
	"slices"
	"time"
)

// DeviceSelection is the set of books one device uses for splash playback.
type DeviceSelection struct {
	SelectedBookIDs []string  `json:"selectedBookIds"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
}

// NewDeviceSelection builds a selection from bookIDs with duplicates and
// empty ids removed, keeping first occurrence order.
func NewDeviceSelection(bookIDs []string, now time.Time) DeviceSelection {
	ids := make([]string, 0, len(bookIDs))
	for _, id := range bookIDs {
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return DeviceSelection{SelectedBookIDs: ids, UpdatedAt: now}
}

// Contains reports whether bookID is selected.
func (s DeviceSelection) Contains(bookID string) bool {
	return slices.Contains(s.SelectedBookIDs, bookID)
}
