package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// memoryStore keeps records as JSON text, the way they are stored for real.
type memoryStore struct {
	records map[string][]byte
	saves   []string
	failOn  map[string]bool
}

func newMemoryStore(records map[string]string) *memoryStore {
	store := memoryStore{records: map[string][]byte{}, failOn: map[string]bool{}}
	for id, raw := range records {
		store.records[id] = []byte(raw)
	}
	return &store
}

func (store *memoryStore) Keys(context.Context) ([]string, error) {
	keys := make([]string, 0, len(store.records))
	for key := range store.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (store *memoryStore) Load(_ context.Context, id string) (Record, error) {
	raw, ok := store.records[id]
	if !ok {
		return Record{}, fmt.Errorf("record %s not found", id)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return Record{ID: id, Data: data}, nil
}

func (store *memoryStore) Save(_ context.Context, record Record) error {
	if store.failOn[record.ID] {
		return errors.New("store is read-only for " + record.ID)
	}
	b, err := json.Marshal(record.Data)
	if err != nil {
		return err
	}
	store.records[record.ID] = b
	store.saves = append(store.saves, record.ID)
	return nil
}

func (store *memoryStore) data(id string) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(store.records[id], &data); err != nil {
		panic(err)
	}
	return data
}

type memoryAppliedSet map[string]bool

func (set memoryAppliedSet) IsApplied(_ context.Context, step string) (bool, error) {
	return set[step], nil
}

func (set memoryAppliedSet) MarkApplied(_ context.Context, step string) error {
	set[step] = true
	return nil
}
