// Package db selects the concrete storage driver at process start.
package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/store"
	"github.com/ningoooo/rolechat/store/db/file"
	"github.com/ningoooo/rolechat/store/db/memory"
	"github.com/ningoooo/rolechat/store/db/mongo"
	"github.com/ningoooo/rolechat/store/db/sqlite"
)

// NewDriver creates a new storage driver based on profile.
//
// memory: volatile, per-process only. file: JSON documents under the data
// directory. sqlite: single-file database. mongo: document database, the
// backend the production deployment uses.
func NewDriver(ctx context.Context, profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "memory":
		driver = memory.NewDB()
	case "file":
		driver, err = file.NewDB(profile)
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "mongo":
		driver, err = mongo.NewDB(ctx, profile)
	default:
		return nil, errors.Errorf("unknown storage driver %q", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage driver")
	}
	return driver, nil
}
