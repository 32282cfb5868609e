package storage

import "time"

// GenerationRecord is the terminal outcome of one generation invocation.
type GenerationRecord struct {
	Id           string    `bson:"_id"`
	UserId       int64     `bson:"user_id"`
	Prompt       string    `bson:"prompt"`
	Model        string    `bson:"model"`
	Size         string    `bson:"size"`
	ContentClass string    `bson:"content_class"`
	JobId        string    `bson:"job_id"`
	Status       string    `bson:"status"`
	ImageUrls    []string  `bson:"image_urls"`
	Error        string    `bson:"error"`
	CreatedAt    time.Time `bson:"created_at"`
}

type GenerationStorage interface {
	SaveRecord(record *GenerationRecord) error
	// RecentRecords returns up to limit records for the user, newest first.
	RecentRecords(userId int64, limit int) ([]GenerationRecord, error)
	// DeleteOlderThan removes records created before cutoff and returns the
	// number removed.
	DeleteOlderThan(cutoff time.Time) (int64, error)
	Close() error
}
