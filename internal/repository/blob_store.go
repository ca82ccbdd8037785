package repository

import (
	"bytes"
	"context"
	"errors"
)

// Collection names one per-tenant record collection.
type Collection string

const (
	CollectionPrincipals   Collection = "principals"
	CollectionLessons      Collection = "lessons"
	CollectionChallenges   Collection = "challenges"
	CollectionActivities   Collection = "activities"
	CollectionClasses      Collection = "registered_classes"
	CollectionMemberships  Collection = "memberships"
	CollectionBadges       Collection = "badges"
	CollectionPointHistory Collection = "point_history"
	CollectionSessions     Collection = "sessions"
)

// Collections lists every collection kept per tenant.
var Collections = []Collection{
	CollectionPrincipals,
	CollectionLessons,
	CollectionChallenges,
	CollectionActivities,
	CollectionClasses,
	CollectionMemberships,
	CollectionBadges,
	CollectionPointHistory,
	CollectionSessions,
}

// ErrReadOnly is returned when a write is attempted through a read-only view.
var ErrReadOnly = errors.New("blob store: read-only transaction")

// BlobTx reads and writes the collections of a single tenant. Reads observe earlier writes
// of the same transaction.
type BlobTx interface {
	Get(ctx context.Context, c Collection) ([]byte, error)
	Put(ctx context.Context, c Collection, payload []byte) error
}

// BlobStore persists one opaque JSON document per (tenant, collection) key.
//
// Update runs fn against a transaction scoped to one tenant; writes are applied only when fn
// returns nil. Drivers with optimistic concurrency may invoke fn more than once, so fn must
// derive everything it writes from what it reads.
type BlobStore interface {
	Load(ctx context.Context, tenantID string, c Collection) ([]byte, error)
	LoadAll(ctx context.Context, c Collection) (map[string][]byte, error)
	Update(ctx context.Context, tenantID string, fn func(tx BlobTx) error) error
}

// bufferedTx collects writes in memory until the owning driver flushes them.
type bufferedTx struct {
	load   func(ctx context.Context, c Collection) ([]byte, error)
	writes map[Collection][]byte
	order  []Collection
}

func newBufferedTx(load func(ctx context.Context, c Collection) ([]byte, error)) *bufferedTx {
	return &bufferedTx{load: load, writes: make(map[Collection][]byte)}
}

func (t *bufferedTx) Get(ctx context.Context, c Collection) ([]byte, error) {
	if payload, ok := t.writes[c]; ok {
		return bytes.Clone(payload), nil
	}
	return t.load(ctx, c)
}

func (t *bufferedTx) Put(_ context.Context, c Collection, payload []byte) error {
	if _, ok := t.writes[c]; !ok {
		t.order = append(t.order, c)
	}
	t.writes[c] = bytes.Clone(payload)
	return nil
}

// readOnlyTx adapts plain loads to the BlobTx interface.
type readOnlyTx struct {
	store    BlobStore
	tenantID string
}

func (t readOnlyTx) Get(ctx context.Context, c Collection) ([]byte, error) {
	return t.store.Load(ctx, t.tenantID, c)
}

func (t readOnlyTx) Put(context.Context, Collection, []byte) error {
	return ErrReadOnly
}
