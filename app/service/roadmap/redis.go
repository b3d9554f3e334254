package roadmap

import (
	"careerai/app/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each item as a JSON string and a per-user sorted set of
// item ids scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type redisRecord struct {
	UserID string `json:"userId"`
	Item
}

func NewRedisStore(ctx context.Context, cfg config.Redis) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) itemKey(id string) string {
	return s.prefix + "roadmap:item:" + id
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + "roadmap:user:" + userID
}

func (s *RedisStore) Create(ctx context.Context, item Item) error {
	val, err := json.Marshal(redisRecord{UserID: item.UserID, Item: item})
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.itemKey(item.ID), val, 0)
		pipe.ZAdd(ctx, s.userKey(item.UserID), redis.Z{
			Score:  float64(item.CreatedAt.UnixNano()),
			Member: item.ID,
		})
		return nil
	})
	return err
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]Item, error) {
	ids, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	result := make([]Item, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.itemKey(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry outlived its item
			continue
		}

		item, err := decodeRedisItem(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	sortNewestFirst(result)

	return result, nil
}

func (s *RedisStore) Count(ctx context.Context, userID string) (int, error) {
	count, err := s.client.ZCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *RedisStore) Get(ctx context.Context, userID, id string) (Item, error) {
	raw, err := s.client.Get(ctx, s.itemKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}

	item, err := decodeRedisItem(raw)
	if err != nil {
		return Item{}, err
	}
	if !ownedBy(&item, userID) {
		return Item{}, ErrNotFound
	}

	return item, nil
}

const redisUpdateRetries = 10

// Update uses WATCH/MULTI/EXEC so concurrent writers do not lose changes.
func (s *RedisStore) Update(ctx context.Context, userID, id string, mutate func(*Item)) (Item, error) {
	key := s.itemKey(id)
	var result Item

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		item, err := decodeRedisItem(raw)
		if err != nil {
			return err
		}
		if !ownedBy(&item, userID) {
			return ErrNotFound
		}

		mutate(&item)

		val, err := json.Marshal(redisRecord{UserID: item.UserID, Item: item})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, 0)
			return nil
		})
		if err != nil {
			return err
		}

		result = item
		return nil
	}

	for attempt := 0; attempt < redisUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// the key changed between GET and EXEC
			continue
		}
		if err != nil {
			return Item{}, err
		}
		return result, nil
	}

	return Item{}, fmt.Errorf("update item %s: %w after %d attempts", id, redis.TxFailedErr, redisUpdateRetries)
}

func (s *RedisStore) Delete(ctx context.Context, userID, id string) error {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.itemKey(id))
		pipe.ZRem(ctx, s.userKey(item.UserID), id)
		return nil
	})
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRedisItem(raw string) (Item, error) {
	var record redisRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Item{}, fmt.Errorf("failed to decode roadmap item: %w", err)
	}

	record.Item.UserID = record.UserID
	return record.Item, nil
}
