package repos

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"histdata/data/frame"
)

const xlsxSheet = "data"

type XLSXRepo struct {
	path string
}

func NewXLSXRepo(path string) *XLSXRepo {
	return &XLSXRepo{path: path}
}

func (r *XLSXRepo) Name() string { return "xlsx" }

func (r *XLSXRepo) WriteTable(ctx context.Context, t *frame.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensureDir(r.path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}

	header := append([]any{DateHeader}, toAny(t.Columns())...)
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing xlsx header: %w", err)
	}

	for i, row := range t.Rows() {
		values := make([]any, 0, len(row.Values)+1)
		values = append(values, row.Date)
		for _, v := range row.Values {
			if v.Valid {
				values = append(values, v.Float64)
			} else {
				values = append(values, nil)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("error addressing row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing xlsx row %s: %w", row.Date, err)
		}
	}

	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("error saving workbook %s: %w", r.path, err)
	}
	return nil
}

func toAny(s []string) []any {
	res := make([]any, len(s))
	for i, v := range s {
		res[i] = v
	}
	return res
}
