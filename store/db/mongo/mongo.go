// Package mongo implements the document-database storage driver.
//
// One conversation is one document, so a message append is a single-document
// $push and therefore atomic per conversation id. This is the backend the
// production deployment runs on.
package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/store"
)

// DB is the MongoDB storage driver.
type DB struct {
	client        *mongo.Client
	conversations *mongo.Collection
	memories      *mongo.Collection
	roles         *mongo.Collection
}

// NewDB connects to the database and ensures the indexes exist.
func NewDB(ctx context.Context, profile *profile.Profile) (*DB, error) {
	opts := options.Client().
		ApplyURI(profile.DSN).
		SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongodb is unreachable")
	}

	database := client.Database(profile.Database)
	d := &DB{
		client:        client,
		conversations: database.Collection("conversations"),
		memories:      database.Collection("user_memories"),
		roles:         database.Collection("custom_roles"),
	}
	if err := d.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "failed to create indexes")
	}
	return d, nil
}

func (d *DB) createIndexes(ctx context.Context) error {
	if _, err := d.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_ts", Value: -1}}},
		{Keys: bson.D{{Key: "character_name", Value: 1}, {Key: "updated_ts", Value: -1}}},
	}); err != nil {
		return err
	}
	if _, err := d.memories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "character_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := d.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "role_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *DB) Stats(ctx context.Context) (*store.Stats, error) {
	stats := &store.Stats{Driver: "mongo"}

	conversations, err := d.conversations.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count conversations")
	}
	memories, err := d.memories.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count memories")
	}
	roles, err := d.roles.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count custom roles")
	}
	stats.Conversations = int(conversations)
	stats.Memories = int(memories)
	stats.CustomRoles = int(roles)

	// Message count needs an unwind; an aggregate sum over array lengths.
	cur, err := d.conversations.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$project", Value: bson.M{"count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$messages", bson.A{}}}}}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$count"}}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count messages")
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		var result struct {
			Total int `bson:"total"`
		}
		if err := cur.Decode(&result); err == nil {
			stats.Messages = result.Total
		}
	}
	return stats, nil
}
