package repository

import (
	"context"
	"errors"
	"time"

	"travel-storefront/internal/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("key not found")

// LocalStoreRepository is the namespaced key/value store behind the
// purchase ledger. Values are whole JSON documents.
type LocalStoreRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type localStoreRepoImpl struct {
	db *gorm.DB
}

func NewLocalStoreRepository(db *gorm.DB) LocalStoreRepository {
	return &localStoreRepoImpl{
		db: db,
	}
}

func (r *localStoreRepoImpl) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrNotFound
	}

	var entry model.LocalEntry
	err := r.db.WithContext(ctx).Where(&model.LocalEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return entry.Value, nil
}

func (r *localStoreRepoImpl) Put(ctx context.Context, key, value string) error {
	entry := &model.LocalEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
}

func (r *localStoreRepoImpl) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&model.LocalEntry{Key: key}).Error
}

type redisLocalStoreImpl struct {
	client *redis.Client
	prefix string
}

func NewRedisLocalStoreRepository(client *redis.Client) LocalStoreRepository {
	return &redisLocalStoreImpl{
		client: client,
		prefix: "storefront:",
	}
}

func (r *redisLocalStoreImpl) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisLocalStoreImpl) Put(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisLocalStoreImpl) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
