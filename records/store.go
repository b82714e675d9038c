package records

import (
	"context"
	"encoding/json"
	"fmt"
	"phenotips.org/pedigree/migration"
	"sort"
	"strings"
)

// keyValueStore is the part of the redis client record stores rely on.
type keyValueStore interface {
	GetRaw(ctx context.Context, redisKey string) ([]byte, error)
	SaveRaw(ctx context.Context, redisKey string, b []byte) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

type setStore interface {
	AddToSet(ctx context.Context, setKey string, members ...string) error
	IsInSet(ctx context.Context, setKey string, member string) (bool, error)
}

// RecordStore exposes the JSON records stored under one key prefix to the
// migration engine. Record ids are the keys without the prefix.
type RecordStore struct {
	client keyValueStore
	prefix string
}

func (store RecordStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := store.client.ScanKeys(ctx, store.prefix+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, store.prefix))
	}
	sort.Strings(ids)
	return ids, nil
}

func (store RecordStore) Load(ctx context.Context, id string) (migration.Record, error) {
	b, err := store.client.GetRaw(ctx, store.prefix+id)
	if err != nil {
		return migration.Record{}, err
	}
	var data map[string]interface{}
	if err = json.Unmarshal(b, &data); err != nil {
		return migration.Record{}, fmt.Errorf("%w: %s is not a JSON object: %v", migration.ErrMalformedRecord, id, err)
	}
	if data == nil {
		return migration.Record{}, fmt.Errorf("%w: %s is empty", migration.ErrMalformedRecord, id)
	}
	return migration.Record{ID: id, Data: data}, nil
}

func (store RecordStore) Save(ctx context.Context, record migration.Record) error {
	b, err := json.Marshal(record.Data)
	if err != nil {
		return err
	}
	return store.client.SaveRaw(ctx, store.prefix+record.ID, b)
}

type AppliedMigrations struct {
	client setStore
	key    string
}

func (applied AppliedMigrations) IsApplied(ctx context.Context, step string) (bool, error) {
	return applied.client.IsInSet(ctx, applied.key, step)
}

func (applied AppliedMigrations) MarkApplied(ctx context.Context, step string) error {
	return applied.client.AddToSet(ctx, applied.key, step)
}
