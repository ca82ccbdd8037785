package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrStoreContention is returned when optimistic retries are exhausted.
var ErrStoreContention = errors.New("blob store: too much contention")

// RedisBlobStore keeps each blob under prefix:tenant:collection and tracks tenants in a set.
type RedisBlobStore struct {
	client  *redis.Client
	prefix  string
	retries int
}

// NewRedisBlobStore creates a Redis backed blob store.
func NewRedisBlobStore(client *redis.Client, prefix string, retries int) *RedisBlobStore {
	if prefix == "" {
		prefix = "classroom"
	}
	if retries <= 0 {
		retries = 1
	}
	return &RedisBlobStore{client: client, prefix: prefix, retries: retries}
}

func (s *RedisBlobStore) key(tenantID string, c Collection) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, tenantID, c)
}

func (s *RedisBlobStore) tenantsKey() string {
	return s.prefix + ":tenants"
}

// Load returns the payload or nil when the key is missing.
func (s *RedisBlobStore) Load(ctx context.Context, tenantID string, c Collection) ([]byte, error) {
	return getBlob(ctx, s.client, s.key(tenantID, c))
}

// LoadAll reads the collection for every known tenant.
func (s *RedisBlobStore) LoadAll(ctx context.Context, c Collection) (map[string][]byte, error) {
	tenants, err := s.client.SMembers(ctx, s.tenantsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis tenants: %w", err)
	}

	result := make(map[string][]byte, len(tenants))
	for _, tenantID := range tenants {
		payload, err := s.Load(ctx, tenantID, c)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			result[tenantID] = payload
		}
	}
	return result, nil
}

// Update watches every collection key of the tenant and commits buffered writes in MULTI/EXEC.
func (s *RedisBlobStore) Update(ctx context.Context, tenantID string, fn func(tx BlobTx) error) error {
	keys := make([]string, 0, len(Collections))
	for _, c := range Collections {
		keys = append(keys, s.key(tenantID, c))
	}

	txf := func(rtx *redis.Tx) error {
		buffered := newBufferedTx(func(ctx context.Context, c Collection) ([]byte, error) {
			return getBlob(ctx, rtx, s.key(tenantID, c))
		})
		if err := fn(buffered); err != nil {
			return err
		}
		if len(buffered.writes) == 0 {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range buffered.order {
				pipe.Set(ctx, s.key(tenantID, c), buffered.writes[c], 0)
			}
			pipe.SAdd(ctx, s.tenantsKey(), tenantID)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrStoreContention
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getBlob(ctx context.Context, cmd stringGetter, key string) ([]byte, error) {
	payload, err := cmd.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return payload, nil
}
