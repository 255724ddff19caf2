package repos

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"histdata/data/frame"
)

type CSVRepo struct {
	path string
}

func NewCSVRepo(path string) *CSVRepo {
	return &CSVRepo{path: path}
}

func (r *CSVRepo) Name() string { return "csv" }

func (r *CSVRepo) Path() string { return r.path }

func (r *CSVRepo) WriteTable(ctx context.Context, t *frame.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	header, records := Records(t)
	return WriteRecords(r.path, header, records)
}

// WriteRecords writes header and records to path through a temp file in the same
// directory, so a failed run never leaves a half written file behind.
func WriteRecords(path string, header []string, records [][]string) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	if err = w.WriteAll(records); err != nil {
		return fmt.Errorf("error writing csv records: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error moving csv into place at %s: %w", path, err)
	}
	return nil
}
