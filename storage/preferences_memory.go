package storage

import (
	"sync"
	"time"
)

// MemoryPreferencesStorage is an in-memory implementation of PreferencesStorage
type MemoryPreferencesStorage struct {
	preferences map[int64]*UserPreferences
	mutex       sync.RWMutex
}

func NewMemoryPreferencesStorage() *MemoryPreferencesStorage {
	return &MemoryPreferencesStorage{
		preferences: make(map[int64]*UserPreferences),
	}
}

func (m *MemoryPreferencesStorage) GetUserPreferences(userId int64) (*UserPreferences, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	prefs, ok := m.preferences[userId]
	if !ok {
		return nil, nil
	}

	// Return a copy so callers cannot mutate stored state
	copied := *prefs
	return &copied, nil
}

func (m *MemoryPreferencesStorage) SaveUserPreferences(prefs *UserPreferences) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	if existing, ok := m.preferences[prefs.UserId]; ok {
		prefs.CreatedAt = existing.CreatedAt
	} else {
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now

	copied := *prefs
	m.preferences[prefs.UserId] = &copied
	return nil
}

func (m *MemoryPreferencesStorage) ClearUserPreferences(userId int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.preferences, userId)
	return nil
}

func (m *MemoryPreferencesStorage) Close() error {
	return nil
}
