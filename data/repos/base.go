package repos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"

	"histdata/data/frame"
)

// DateHeader names the index column in every sink.
const DateHeader = "date"

// TableWriter persists a merged table.
type TableWriter interface {
	Name() string
	WriteTable(ctx context.Context, t *frame.Table) error
}

// FormatCell renders a cell in shortest round-trip form; null is empty.
func FormatCell(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// Records flattens a table into a header and string records, date first.
func Records(t *frame.Table) (header []string, records [][]string) {
	header = append([]string{DateHeader}, t.Columns()...)
	rows := t.Rows()
	records = make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, 0, len(row.Values)+1)
		rec = append(rec, row.Date)
		for _, v := range row.Values {
			rec = append(rec, FormatCell(v))
		}
		records[i] = rec
	}
	return
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	return nil
}
