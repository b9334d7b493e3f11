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

func (d *DB) CreateCustomRole(ctx context.Context, create *store.CustomRole) (*store.CustomRole, error) {
	if _, err := d.roles.InsertOne(ctx, create); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to create custom role")
	}
	out := *create
	return &out, nil
}

func (d *DB) GetCustomRole(ctx context.Context, id string) (*store.CustomRole, error) {
	r := &store.CustomRole{}
	err := d.roles.FindOne(ctx, bson.M{"role_id": id}).Decode(r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get custom role")
	}
	return r, nil
}

func (d *DB) ListCustomRoles(ctx context.Context, find *store.FindCustomRole) ([]*store.CustomRole, error) {
	filter := bson.M{}
	if v := find.ID; v != nil {
		filter["role_id"] = *v
	}
	if v := find.Keyword; v != nil {
		// Case-insensitive substring over name/description/personality.
		regex := bson.M{"$regex": *v, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"description": regex},
			bson.M{"personality": regex},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_ts", Value: -1}})
	cur, err := d.roles.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list custom roles")
	}
	defer cur.Close(ctx)

	var out []*store.CustomRole
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode custom roles")
	}
	return out, nil
}

func (d *DB) UpdateCustomRole(ctx context.Context, update *store.UpdateCustomRole) (*store.CustomRole, error) {
	set := bson.M{"updated_ts": time.Now().Unix()}
	if v := update.Name; v != nil {
		set["name"] = *v
	}
	if v := update.Description; v != nil {
		set["description"] = *v
	}
	if v := update.Personality; v != nil {
		set["personality"] = *v
	}
	if v := update.Category; v != nil {
		set["category"] = *v
	}
	if v := update.Tags; v != nil {
		set["tags"] = *v
	}
	if v := update.Image; v != nil {
		set["image"] = *v
	}
	if v := update.SystemPrompt; v != nil {
		set["system_prompt"] = *v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	r := &store.CustomRole{}
	err := d.roles.FindOneAndUpdate(ctx, bson.M{"role_id": update.ID}, bson.M{"$set": set}, opts).Decode(r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to update custom role")
	}
	return r, nil
}

func (d *DB) DeleteCustomRole(ctx context.Context, id string) (bool, error) {
	result, err := d.roles.DeleteOne(ctx, bson.M{"role_id": id})
	if err != nil {
		return false, errors.Wrap(err, "failed to delete custom role")
	}
	return result.DeletedCount > 0, nil
}
