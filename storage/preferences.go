package storage

import "time"

// UserPreferences stores a user's generation overrides. Empty fields fall
// back to the admin-configured defaults at resolve time.
type UserPreferences struct {
	UserId       int64     `bson:"user_id"`
	Size         string    `bson:"size"`
	ContentClass string    `bson:"content_class"`
	Model        string    `bson:"model"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// PreferencesStorage defines the interface for user preferences persistence
type PreferencesStorage interface {
	// GetUserPreferences retrieves preferences for a user (returns nil if none exist)
	GetUserPreferences(userId int64) (*UserPreferences, error)
	// SaveUserPreferences creates or updates user preferences
	SaveUserPreferences(prefs *UserPreferences) error
	// ClearUserPreferences removes all overrides for a user
	ClearUserPreferences(userId int64) error
	// Close closes the storage connection
	Close() error
}
