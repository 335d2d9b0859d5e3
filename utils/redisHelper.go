package utils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/dyeing_backend/config"
	"gorm.io/gorm"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance, obj should be a pointer
func StoreRedis[T any](obj *T, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$id
func RemoveRedisItem[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

// GetSequence returns the next sequence_no for T.
// Redis holds the counter when configured; the first hit (or no redis) seeds
// from max(sequence_no). That read takes no lock: two writers can draw the same
// number, and the unique index on sequence_no fails the later insert as retryable.
func GetSequence[T any](ctx context.Context, tx *gorm.DB) (int64, error) {
	var model T
	cacheKey := strings.ToLower(GetTypeName[T]()) + "_seq"

	seqNo, ok, err := config.GetRedisCounter(ctx, cacheKey)
	if err != nil {
		return 0, err
	}
	if ok && seqNo > 1 {
		return seqNo, nil
	}

	var dbSeq sql.NullInt64
	if err := tx.Model(&model).Select("max(sequence_no)").Row().Scan(&dbSeq); err != nil {
		return 0, err
	}
	next := dbSeq.Int64 + 1
	if ok {
		if err := config.SetRedisObject(cacheKey, next, 0); err != nil {
			return 0, err
		}
	}
	return next, nil
}
