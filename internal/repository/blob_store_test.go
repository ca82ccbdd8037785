package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBlobStore(t *testing.T) (*RedisBlobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBlobStore(client, "test", 3), mr
}

func blobStores(t *testing.T) map[string]BlobStore {
	redisStore, _ := newRedisBlobStore(t)
	return map[string]BlobStore{
		"memory": NewMemoryBlobStore(),
		"redis":  redisStore,
	}
}

func TestBlobStoreLoadMissing(t *testing.T) {
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			payload, err := store.Load(context.Background(), "school-a", CollectionLessons)
			require.NoError(t, err)
			assert.Nil(t, payload)
		})
	}
}

func TestBlobStoreUpdateCommitsAndReadsOwnWrites(t *testing.T) {
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.Update(ctx, "school-a", func(tx BlobTx) error {
				require.NoError(t, tx.Put(ctx, CollectionLessons, []byte(`{"v":1}`)))
				got, err := tx.Get(ctx, CollectionLessons)
				require.NoError(t, err)
				assert.JSONEq(t, `{"v":1}`, string(got))
				return nil
			})
			require.NoError(t, err)

			payload, err := store.Load(ctx, "school-a", CollectionLessons)
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":1}`, string(payload))
		})
	}
}

func TestBlobStoreUpdateRollsBackOnError(t *testing.T) {
	boom := errors.New("boom")
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.Update(ctx, "school-a", func(tx BlobTx) error {
				require.NoError(t, tx.Put(ctx, CollectionActivities, []byte(`{}`)))
				require.NoError(t, tx.Put(ctx, CollectionPointHistory, []byte(`{}`)))
				return boom
			})
			require.ErrorIs(t, err, boom)

			for _, c := range []Collection{CollectionActivities, CollectionPointHistory} {
				payload, err := store.Load(ctx, "school-a", c)
				require.NoError(t, err)
				assert.Nil(t, payload)
			}
		})
	}
}

func TestBlobStoreLoadAllIsPerTenant(t *testing.T) {
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, tenant := range []string{"school-b", "school-a"} {
				tenant := tenant
				require.NoError(t, store.Update(ctx, tenant, func(tx BlobTx) error {
					return tx.Put(ctx, CollectionLessons, []byte(`"`+tenant+`"`))
				}))
			}

			all, err := store.LoadAll(ctx, CollectionLessons)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, `"school-a"`, string(all["school-a"]))
			assert.Equal(t, `"school-b"`, string(all["school-b"]))

			none, err := store.LoadAll(ctx, CollectionBadges)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestRedisBlobStoreKeysAndTenantSet(t *testing.T) {
	store, mr := newRedisBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "school-a", func(tx BlobTx) error {
		return tx.Put(ctx, CollectionBadges, []byte(`[]`))
	}))

	got, err := mr.Get("test:school-a:badges")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	members, err := mr.Members("test:tenants")
	require.NoError(t, err)
	assert.Equal(t, []string{"school-a"}, members)
}

func TestRedisBlobStoreNoWritesSkipsExec(t *testing.T) {
	store, mr := newRedisBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "school-a", func(tx BlobTx) error {
		_, err := tx.Get(ctx, CollectionLessons)
		return err
	}))
	assert.False(t, mr.Exists("test:tenants"))
}
