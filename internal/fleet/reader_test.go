package fleet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	input := `"projects/p/zones/z/instances/a","[{""type"":""ops-agent"",""version"":""2.*.*""}]"

"projects/p/zones/z/instances/b", "[{""type"":""logging""},{""type"":""metrics""}]"
"projects/p/zones/z/instances/c"
"projects/p/zones/z/instances/d","[]","extra"
`
	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, Row{Number: 1, Instance: "projects/p/zones/z/instances/a", Rules: `[{"type":"ops-agent","version":"2.*.*"}]`, Fields: 2}, rows[0])
	assert.Equal(t, 3, rows[1].Number, "blank lines are skipped but line numbers are kept")
	assert.Equal(t, `[{"type":"logging"},{"type":"metrics"}]`, rows[1].Rules)
	assert.Equal(t, 1, rows[2].Fields)
	assert.Equal(t, 3, rows[3].Fields)

	batch := Parse(rows)
	assert.Len(t, batch.Specs, 2)
	assert.Len(t, batch.Invalid, 2)
}

func TestReadCSV_BadLineKeepsNeighbours(t *testing.T) {
	t.Parallel()

	input := `"projects/p/zones/z/instances/a","[{""type"":""logging""}]"
projects/p/zones/z/instances/b,[{"type":"logging"}]
"projects/p/zones/z/instances/c,"[{"type":"logging"}]"
projects/p/zones/z/instances/d,[{"type":"logging"},{"type":"metrics"}]
"projects/p/zones/z/instances/e","[{""type"":""metrics""}]"
`
	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, Row{Number: 2, Instance: "projects/p/zones/z/instances/b", Rules: `[{"type":"logging"}]`, Fields: 2}, rows[1],
		"unquoted JSON is read leniently")

	batch := Parse(rows)
	var valid []string
	for _, spec := range batch.Specs {
		valid = append(valid, spec.Instance.Name)
	}
	assert.Equal(t, []string{"a", "b", "e"}, valid)
	require.Len(t, batch.Invalid, 2)
	assert.Equal(t, 3, batch.Invalid[0].RowNumber())
	assert.Equal(t, 4, batch.Invalid[1].RowNumber())
}

func TestReadCSV_CRLF(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader("\"projects/p/zones/z/instances/a\",\"[]\"\r\n\r\n\"projects/p/zones/z/instances/b\",\"[]\"\r\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "[]", rows[0].Rules)
	assert.Equal(t, 3, rows[1].Number)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vms.csv")
	require.NoError(t, os.WriteFile(path, []byte(`"projects/p/zones/z/instances/a","[{""type"":""logging""}]"`+"\n"), 0o600))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
