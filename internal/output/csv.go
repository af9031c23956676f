/*
PURPOSE:
  Parses the engine's result file into an in-memory numeric table.
  The file is headerless, comma-delimited, one row per evaluated instance.

REQUIREMENTS:
  User-specified:
  - Called only after the engine reported a zero return code.
  - Missing file is its own failure mode: the engine claimed success but
    produced nothing. Never return a partial table.

  Implementation-discovered:
  - Rows may be ragged in pathological engine output; treat that as a
    parse error rather than guessing a shape.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (estimator, after a successful predict)
  - Produces: internal/model.ResultTable

ERROR HANDLING:
  - os.IsNotExist -> *ResultMissingError (usable with errors.As).
  - Any malformed cell fails the whole parse.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Ownership of the table transfers fully to the caller.

USAGE:
  table, err := output.ReadResultTable("/path/out.csv")

SELF-HEALING INSTRUCTIONS:
  - If the engine ever grows a header row, add a skip option here; do not
    silently drop the first row.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if the engine's result format changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/daryltucker/smile-runner/internal/model"
)

// ResultMissingError reports that the engine exited cleanly but the
// expected result file is absent.
type ResultMissingError struct {
	Path string
}

func (e *ResultMissingError) Error() string {
	return fmt.Sprintf("result file missing despite successful run: %s", e.Path)
}

// ReadResultTable loads a headerless CSV result file into a numeric table.
func ReadResultTable(path string) (model.ResultTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ResultMissingError{Path: path}
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	var table model.ResultTable
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read result file %s: %w", path, err)
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("result file %s row %d: non-numeric value %q: %w", path, len(table)+1, field, err)
			}
			row[i] = v
		}
		table = append(table, row)
	}

	return table, nil
}
