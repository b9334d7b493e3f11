package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ningoooo/rolechat/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if _, err := d.conversations.InsertOne(ctx, create); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	out := *create
	return &out, nil
}

func (d *DB) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	c := &store.Conversation{}
	err := d.conversations.FindOne(ctx, bson.M{"conversation_id": id}).Decode(c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get conversation")
	}
	if c.Messages == nil {
		c.Messages = []store.Message{}
	}
	return c, nil
}

// AppendConversationMessage is a single-document update, which is what makes
// the append atomic per conversation id on this backend.
func (d *DB) AppendConversationMessage(ctx context.Context, msg *store.AppendMessage) error {
	now := time.Now().Unix()
	result, err := d.conversations.UpdateOne(ctx,
		bson.M{"conversation_id": msg.ConversationID},
		bson.M{
			"$push": bson.M{"messages": store.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				CreatedTs: now,
			}},
			"$set": bson.M{"updated_ts": now},
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	filter := bson.M{}
	if v := find.ID; v != nil {
		filter["conversation_id"] = *v
	}
	if v := find.UserID; v != nil {
		filter["user_id"] = *v
	}
	if v := find.CharacterName; v != nil {
		filter["character_name"] = *v
	}

	// updated_ts follows the last message, so this is most-recent-first by
	// last activity with created_ts as the natural fallback.
	opts := options.Find().SetSort(bson.D{{Key: "updated_ts", Value: -1}})
	if find.Limit != nil {
		opts.SetLimit(int64(*find.Limit))
	}

	cur, err := d.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer cur.Close(ctx)

	var out []*store.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode conversations")
	}
	for _, c := range out {
		if c.Messages == nil {
			c.Messages = []store.Message{}
		}
	}
	return out, nil
}

func (d *DB) DeleteConversation(ctx context.Context, id string) (bool, error) {
	result, err := d.conversations.DeleteOne(ctx, bson.M{"conversation_id": id})
	if err != nil {
		return false, errors.Wrap(err, "failed to delete conversation")
	}
	return result.DeletedCount > 0, nil
}

func (d *DB) CleanupConversations(ctx context.Context, beforeTs int64) (int, error) {
	result, err := d.conversations.DeleteMany(ctx, bson.M{"updated_ts": bson.M{"$lt": beforeTs}})
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup conversations")
	}
	return int(result.DeletedCount), nil
}
