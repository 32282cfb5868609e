package core

import "context"

type ImageService interface {
	HandleMessage(ctx context.Context, userId int64, text string) string
	SetPreference(userId int64, field string, value string) string
	Settings(userId int64) string
	History(userId int64) string
	Close() error
}
