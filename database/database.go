// database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"vendorcompliance/config"
	"vendorcompliance/logger"
	"vendorcompliance/store"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

func Connect(ctx context.Context) error {
	if config.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	clientOptions := options.Client().
		ApplyURI(config.MongoURI).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second).
		SetMaxPoolSize(50)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	Client = client
	DB = client.Database(config.MongoDatabase)
	logger.Get().Info("connected to MongoDB", zap.String("database", config.MongoDatabase))
	return nil
}

// EnsureIndexes creates the unique keys the workflow depends on: one submission
// per vendor and period, unique submission ids and unique user emails.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		store.SubmissionsCollection: {
			{
				Keys:    bson.D{{Key: "submissionId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "vendor", Value: 1},
					{Key: "uploadPeriod.year", Value: 1},
					{Key: "uploadPeriod.month", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "lastModifiedDate", Value: -1}}},
			{Keys: bson.D{{Key: "vendor", Value: 1}, {Key: "documents.documentType", Value: 1}}},
		},
		store.UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "assignedConsultant", Value: 1}}},
		},
		store.ActivityCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func Disconnect() {
	if Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Client.Disconnect(ctx); err != nil {
		logger.Get().Warn("MongoDB disconnect", zap.Error(err))
	}
}

// Ping checks the primary is reachable.
func Ping(ctx context.Context) error {
	if Client == nil {
		return fmt.Errorf("database not connected")
	}
	return Client.Ping(ctx, readpref.Primary())
}
