package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferencesCollectionName = "user_preferences"

// MongoPreferencesStorage is a MongoDB implementation of PreferencesStorage
type MongoPreferencesStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

// NewMongoPreferencesStorage creates a new MongoDB preferences storage
func NewMongoPreferencesStorage(client *mongo.Client, database string, log *slog.Logger) (*MongoPreferencesStorage, error) {
	collection := client.Database(database).Collection(preferencesCollectionName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create unique index on user_id
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating preferences index", slog.String("error", err.Error()))
	}

	return &MongoPreferencesStorage{
		client:     client,
		collection: collection,
		log:        log,
	}, nil
}

// GetUserPreferences retrieves preferences for a user
func (m *MongoPreferencesStorage) GetUserPreferences(userId int64) (*UserPreferences, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var prefs UserPreferences
	err := m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding preferences: %w", err)
	}
	return &prefs, nil
}

// SaveUserPreferences creates or updates user preferences
func (m *MongoPreferencesStorage) SaveUserPreferences(prefs *UserPreferences) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"size":          prefs.Size,
			"content_class": prefs.ContentClass,
			"model":         prefs.Model,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"user_id":    prefs.UserId,
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := m.collection.UpdateOne(ctx, bson.M{"user_id": prefs.UserId}, update, opts)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// ClearUserPreferences removes all overrides for a user
func (m *MongoPreferencesStorage) ClearUserPreferences(userId int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userId})
	return err
}

// Close is a no-op: the client is shared with the record storage and closed there.
func (m *MongoPreferencesStorage) Close() error {
	return nil
}
