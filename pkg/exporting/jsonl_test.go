package exporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(family, key string, tick int64, value interface{}) Record {
	return Record{
		"session":      "s",
		"tick":         tick,
		"ts":           int64(1700000000000),
		"family":       family,
		"family_order": int64(0),
		"key":          key,
		"reference":    false,
		"value":        value,
	}
}

func writeLines(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "")), 0644))
	return path
}

func TestJSONLWritesColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	r := row("rt", "resnet", 3, nil)
	r["zz_note"] = "x"
	require.NoError(t, SaveRecords(path, []Record{r}, RecordSchema))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		`{"session":"s","tick":3,"ts":1700000000000,"family":"rt","family_order":0,"title":null,"unit":null,`+
			`"key":"resnet","color":null,"reference":false,"value":null,"zz_note":"x"}`+"\n",
		string(data))
}

func TestJSONLRejectsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	r := row("rt", "resnet", 0, 1.0)
	delete(r, "key")
	err := SaveRecords(path, []Record{r}, RecordSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column key is not nullable")
}

func TestJSONLRestoresTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, SaveRecords(path, []Record{row("rt", "resnet", 7, 0.25)}, RecordSchema))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0]["tick"])
	assert.Equal(t, int64(1700000000000), records[0]["ts"])
	assert.Equal(t, int64(0), records[0]["family_order"])
	assert.Equal(t, false, records[0]["reference"])
	assert.Equal(t, 0.25, records[0]["value"])
}

func TestJSONLErrorsCarryLineNumbers(t *testing.T) {
	valid := `{"family":"rt","key":"a","tick":0,"value":1}` + "\n"
	cases := map[string]string{
		"malformed":    `{"family":"rt",` + "\n",
		"missing key":  `{"family":"rt","tick":1}` + "\n",
		"missing tick": `{"family":"rt","key":"a"}` + "\n",
		"bad tick":     `{"family":"rt","key":"a","tick":1.5}` + "\n",
		"bad flag":     `{"family":"rt","key":"a","tick":1,"reference":"yes"}` + "\n",
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRecords(writeLines(t, valid, bad, valid))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestJSONLDropsTruncatedTail(t *testing.T) {
	path := writeLines(t,
		`{"family":"rt","key":"a","tick":0,"value":1}`+"\n",
		"\n",
		`{"family":"rt","key":"a","ti`,
	)
	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0]["tick"])
}
