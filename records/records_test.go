package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/stretchr/testify/require"
	"phenotips.org/pedigree/migration"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/utils/maps"
	"strings"
	"testing"
)

var ctx = context.Background()

type mockRedisCalls struct {
	scans []string
	saves []string
	adds  []string
}

type mockRedis struct {
	values map[string][]byte
	sets   map[string]map[string]bool
	calls  mockRedisCalls
}

func newMockRedis(values map[string]string) *mockRedis {
	mock := mockRedis{values: map[string][]byte{}, sets: map[string]map[string]bool{}}
	for key, value := range values {
		mock.values[key] = []byte(value)
	}
	return &mock
}

func (mock *mockRedis) GetRaw(_ context.Context, redisKey string) ([]byte, error) {
	b, ok := mock.values[redisKey]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", redisKey)
	}
	return b, nil
}

func (mock *mockRedis) SaveRaw(_ context.Context, redisKey string, b []byte) error {
	mock.calls.saves = append(mock.calls.saves, redisKey)
	mock.values[redisKey] = b
	return nil
}

func (mock *mockRedis) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	mock.calls.scans = append(mock.calls.scans, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range mock.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (mock *mockRedis) AddToSet(_ context.Context, setKey string, members ...string) error {
	if mock.sets[setKey] == nil {
		mock.sets[setKey] = map[string]bool{}
	}
	for _, member := range members {
		mock.calls.adds = append(mock.calls.adds, member)
		mock.sets[setKey][member] = true
	}
	return nil
}

func (mock *mockRedis) IsInSet(_ context.Context, setKey string, member string) (bool, error) {
	return mock.sets[setKey][member], nil
}

func TestRecordStore(t *testing.T) {
	mock := newMockRedis(map[string]string{
		"patient:P0000002": `{"sex": "M"}`,
		"patient:P0000001": `{"sex": "F"}`,
		"patient:broken":   `{"sex": `,
		"patient:null":     `null`,
		"family:FAM01":     `{}`,
	})
	store := RecordStore{client: mock, prefix: patientPrefix}

	t.Run("Keys", func(t *testing.T) {
		ids, err := store.Keys(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"P0000001", "P0000002", "broken", "null"}, ids)
		require.Equal(t, []string{"patient:*"}, mock.calls.scans)
	})
	t.Run("Load", func(t *testing.T) {
		record, err := store.Load(ctx, "P0000001")
		require.NoError(t, err)
		require.Equal(t, migration.Record{ID: "P0000001", Data: map[string]interface{}{"sex": "F"}}, record)
	})
	t.Run("Malformed", func(t *testing.T) {
		for _, id := range []string{"broken", "null"} {
			_, err := store.Load(ctx, id)
			require.True(t, errors.Is(err, migration.ErrMalformedRecord), id)
		}
	})
	t.Run("Missing", func(t *testing.T) {
		_, err := store.Load(ctx, "P0000009")
		require.Error(t, err)
		require.False(t, errors.Is(err, migration.ErrMalformedRecord))
	})
	t.Run("Save", func(t *testing.T) {
		err := store.Save(ctx, migration.Record{ID: "P0000002", Data: map[string]interface{}{"sex": "U"}})
		require.NoError(t, err)
		require.Equal(t, []string{"patient:P0000002"}, mock.calls.saves)
		require.JSONEq(t, `{"sex": "U"}`, string(mock.values["patient:P0000002"]))
	})
}

func TestAppliedMigrations(t *testing.T) {
	mock := newMockRedis(nil)
	applied := AppliedMigrations{client: mock, key: appliedMigrationsKey}

	done, err := applied.IsApplied(ctx, "dates")
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, applied.MarkApplied(ctx, "dates"))
	done, err = applied.IsApplied(ctx, "dates")
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, []string{"dates"}, mock.calls.adds)
}

func TestMigrationTarget(t *testing.T) {
	client := newClient(nil, nil)
	for _, name := range []string{StoreFamilies, StorePatients} {
		store, applied, err := client.MigrationTarget(name)
		require.NoError(t, err)
		require.NotNil(t, store)
		require.NotNil(t, applied)
	}
	_, _, err := client.MigrationTarget("notes")
	require.Error(t, err)
}

const familyJSON = `{
	"members": ["P0000001", "P0000002"],
	"proband_id": "P0000001",
	"owner": "xwiki:XWiki.Admin",
	"pedigree": {
		"image": "svg",
		"data": "{\"members\":[{\"id\":1,\"prop\":{\"phenotipsId\":\"P0000001\",\"lName\":\"Roe\"}}],\"proband\":1}"
	}
}`

func TestFamilyRecord(t *testing.T) {
	t.Run("Pedigree from text", func(t *testing.T) {
		var family FamilyRecord
		require.NoError(t, maps.FillFromJSON(&family, []byte(familyJSON)))
		require.Equal(t, []string{"P0000001", "P0000002"}, family.Members)

		p, err := family.BuildPedigree()
		require.NoError(t, err)
		require.Equal(t, pedigree.FormatLegacy, p.Format())
		require.Equal(t, &pedigree.ProbandRef{PatientID: "P0000001", LastName: "Roe"}, p.Proband())
	})
	t.Run("No pedigree", func(t *testing.T) {
		var family FamilyRecord
		require.NoError(t, maps.FillFromJSON(&family, []byte(`{"members": []}`)))
		_, err := family.BuildPedigree()
		require.True(t, errors.Is(err, pedigree.ErrEmptyPedigree))
	})
	t.Run("Export update keeps the record", func(t *testing.T) {
		var export FamilyExport
		require.NoError(t, maps.FillFromJSON(&export, []byte(familyJSON)))
		err := maps.ApplyUpdates(&export, func(family *FamilyExport) {
			family.Export.Status = ExportStatusCompletedSuccess
			family.Export.PatientCount = 2
		})
		require.NoError(t, err)
		b, err := json.Marshal(&export)
		require.NoError(t, err)

		var saved map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &saved))
		require.Equal(t, "xwiki:XWiki.Admin", saved["owner"])
		require.Equal(t, "P0000001", saved["proband_id"])
		export2 := saved["export"].(map[string]interface{})
		require.Equal(t, "completed - success", export2["status"])
		require.Equal(t, 2.0, export2["patient_count"])
	})
}
