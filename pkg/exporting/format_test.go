package exporting

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"csv", "jsonl", "parquet", "sqlite", "tsv"}, Formats())

	f, ok := GetByPath("/tmp/run.PARQUET")
	require.True(t, ok)
	assert.Equal(t, "parquet", f.Name())

	f, ok = GetByExtension(".json")
	require.True(t, ok)
	assert.Equal(t, "jsonl", f.Name())

	_, ok = GetByPath("/tmp/run.xlsx")
	assert.False(t, ok)

	assert.Equal(t, ".db", Extension("sqlite"))
	assert.Equal(t, ".jsonl", Extension("nope"))
}

func TestSaveAndLoadRecords(t *testing.T) {
	records := []Record{
		{"name": "a", "count": int64(1), "ratio": 0.5, "ok": true},
		{"name": "b", "count": int64(2), "ok": false},
	}
	schema := ExtractSchema(records)
	assert.Equal(t, []string{"count", "name", "ok", "ratio"}, schema.Names())

	for _, ext := range []string{".csv", ".parquet", ".db"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "records"+ext)
			require.NoError(t, SaveRecords(path, records, schema))

			got, err := LoadRecords(path)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "a", got[0]["name"])
			assert.EqualValues(t, 2, got[1]["count"])
			assert.Nil(t, got[1]["ratio"])
		})
	}
}

func TestSchemaNamesNil(t *testing.T) {
	var s *Schema
	assert.Nil(t, s.Names())
}
