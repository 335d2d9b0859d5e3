package models

import (
	"context"

	"github.com/mmdatafocus/dyeing_backend/utils"
)

// first find in redis, then in db, cache result
// (may return NotFound error)
func GetResource[T any](ctx context.Context, id int) (*T, error) {
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	// fetch from db
	result, err = utils.FetchModel[T](ctx, id)
	if err != nil {
		return nil, err
	}
	// store in redis
	if err := utils.StoreRedis[T](result, id); err != nil {
		return nil, err
	}
	return result, nil
}

// drop cached copies after commit; a failed removal only leaves a stale read
// that expires with the cache lifespan
func forgetResources[T any](ids ...int) {
	for _, id := range utils.UniqueSlice(ids) {
		_ = utils.RemoveRedisItem[T](id)
	}
}
