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

func (d *DB) GetUserMemory(ctx context.Context, userID, characterName string) (*store.UserMemory, error) {
	m := &store.UserMemory{}
	err := d.memories.FindOne(ctx, bson.M{
		"user_id":        userID,
		"character_name": characterName,
	}).Decode(m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get user memory")
	}
	return m, nil
}

// UpsertUserMemory merges with a single findAndModify: counters $inc,
// preference lists $push, Extra keys $set, created_ts only on insert.
func (d *DB) UpsertUserMemory(ctx context.Context, upsert *store.UpsertUserMemory) (*store.UserMemory, error) {
	now := time.Now().Unix()

	set := bson.M{"updated_ts": now}
	if upsert.LastConversationTs != 0 {
		set["last_conversation_ts"] = upsert.LastConversationTs
	}
	for k, v := range upsert.SetExtra {
		set["extra."+k] = v
	}

	update := bson.M{
		"$inc":         bson.M{"total_messages": upsert.IncTotalMessages},
		"$set":         set,
		"$setOnInsert": bson.M{"created_ts": now},
	}
	push := bson.M{}
	if len(upsert.AddLikes) > 0 {
		push["likes"] = bson.M{"$each": upsert.AddLikes}
	}
	if len(upsert.AddDislikes) > 0 {
		push["dislikes"] = bson.M{"$each": upsert.AddDislikes}
	}
	if len(push) > 0 {
		update["$push"] = push
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	m := &store.UserMemory{}
	err := d.memories.FindOneAndUpdate(ctx, bson.M{
		"user_id":        upsert.UserID,
		"character_name": upsert.CharacterName,
	}, update, opts).Decode(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user memory")
	}
	return m, nil
}

func (d *DB) ListUserMemories(ctx context.Context, find *store.FindUserMemory) ([]*store.UserMemory, error) {
	filter := bson.M{"user_id": find.UserID}
	if v := find.CharacterName; v != nil {
		filter["character_name"] = *v
	}

	opts := options.Find().SetSort(bson.D{{Key: "character_name", Value: 1}})
	cur, err := d.memories.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user memories")
	}
	defer cur.Close(ctx)

	var out []*store.UserMemory
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode user memories")
	}
	return out, nil
}
