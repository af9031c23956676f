package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/smile-runner/internal/model"
)

func writeResult(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadResultTable(t *testing.T) {
	path := writeResult(t, "1.0,2.5,3\n-0.5, 1e3,0.001\n42,0,7\n")

	table, err := ReadResultTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Rows())
	assert.Equal(t, 3, table.Cols())

	want := model.ResultTable{
		{1.0, 2.5, 3},
		{-0.5, 1000, 0.001},
		{42, 0, 7},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestReadResultTableSingleColumn(t *testing.T) {
	path := writeResult(t, "0.25\n0.75\n")

	table, err := ReadResultTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Rows())
	assert.Equal(t, 1, table.Cols())
}

func TestReadResultTableEmpty(t *testing.T) {
	path := writeResult(t, "")

	table, err := ReadResultTable(path)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Rows())
	assert.Equal(t, 0, table.Cols())
}

func TestReadResultTableMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	table, err := ReadResultTable(path)
	assert.Nil(t, table)

	var missErr *ResultMissingError
	require.ErrorAs(t, err, &missErr)
	assert.Equal(t, path, missErr.Path)
	assert.Contains(t, missErr.Error(), "result file missing")
}

func TestReadResultTableNonNumeric(t *testing.T) {
	path := writeResult(t, "1.0,2.0\n1.0,oops\n")

	table, err := ReadResultTable(path)
	assert.Nil(t, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-numeric")
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadResultTableRagged(t *testing.T) {
	path := writeResult(t, "1.0,2.0\n3.0\n")

	_, err := ReadResultTable(path)
	require.Error(t, err)
}
