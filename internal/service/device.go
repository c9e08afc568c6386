package service

import (
	"context"

	"github.com/icberg-810202/tilecatread/internal/device"
	"github.com/icberg-810202/tilecatread/internal/domain"
)

// DeviceID returns this installation's device id, creating one on first use.
func (m *Manager) DeviceID() string {
	return device.LoadOrCreateID(m.cache)
}

// SelectedBooksForDevice returns the book ids deviceID has selected in the
// user's document. userOverride selects another user; otherwise the current
// user is used. With no user, or no stored selection, the list is empty.
func (m *Manager) SelectedBooksForDevice(ctx context.Context, deviceID, userOverride string) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	username := userOverride
	if username == "" {
		username = m.CurrentUser()
	}
	if username == "" {
		return []string{}, nil
	}

	sel, ok := m.fetch(ctx, username).DeviceSelections[deviceID]
	if !ok || sel.SelectedBookIDs == nil {
		return []string{}, nil
	}
	return sel.SelectedBookIDs, nil
}

// SaveSelectedBooksForDevice overwrites deviceID's selection in the current
// user's document and mirrors it to the local device store. Other devices'
// selections are untouched.
func (m *Manager) SaveSelectedBooksForDevice(ctx context.Context, deviceID string, bookIDs []string) (domain.DeviceSelection, error) {
	username, err := m.sessionUser()
	if err != nil {
		return domain.DeviceSelection{}, err
	}

	var saved domain.DeviceSelection
	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		saved = domain.NewDeviceSelection(bookIDs, m.now().UTC())
		doc.DeviceSelections[deviceID] = saved
		return nil
	})
	if err != nil {
		return domain.DeviceSelection{}, err
	}

	m.selections.Save(deviceID, saved.SelectedBookIDs)
	m.logger.Info("device selection saved",
		"username", username,
		"device_id", deviceID,
		"books", len(saved.SelectedBookIDs))
	return saved, nil
}

// mirrorSelection copies this device's selection in doc to the local store
// the splash player reads, or clears it when doc has none.
func (m *Manager) mirrorSelection(doc *domain.Document) {
	deviceID := m.DeviceID()
	if sel, ok := doc.DeviceSelections[deviceID]; ok {
		m.selections.Save(deviceID, sel.SelectedBookIDs)
		return
	}
	m.selections.Clear(deviceID)
}
