// Package frame holds the date indexed table that every fetched series is reduced to
// before being merged and written out.
package frame

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/guregu/null/v6"

	ex "histdata/data/extensions"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Table maps calendar dates to a fixed, ordered set of nullable float columns.
// Dates are unique keys; after Sort they are strictly increasing.
type Table struct {
	columns []string
	index   map[string]int
	dates   []string
	rows    map[string][]null.Float
	sorted  bool
}

// Row is one date of a table with its values in column order.
type Row struct {
	Date   string
	Values []null.Float
}

func New(columns ...string) (*Table, error) {
	t := &Table{
		index:  make(map[string]int, len(columns)),
		rows:   make(map[string][]null.Float),
		sorted: true,
	}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len is the number of dates in the table.
func (t *Table) Len() int {
	return len(t.dates)
}

// Dates returns the date keys in ascending order.
func (t *Table) Dates() []string {
	t.Sort()
	return slices.Clone(t.dates)
}

// AddColumn appends an all-null column.
func (t *Table) AddColumn(name string) error {
	if name == "" {
		return fmt.Errorf("error adding column: empty name")
	}
	if t.HasColumn(name) {
		return fmt.Errorf("error adding column %q: %w", name, ErrDuplicateColumn)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for d, row := range t.rows {
		t.rows[d] = append(row, null.Float{})
	}
	return nil
}

// Rename changes a column name in place.
func (t *Table) Rename(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("error renaming column %q: %w", from, ErrUnknownColumn)
	}
	if from == to {
		return nil
	}
	if t.HasColumn(to) {
		return fmt.Errorf("error renaming column %q to %q: %w", from, to, ErrDuplicateColumn)
	}
	delete(t.index, from)
	t.index[to] = i
	t.columns[i] = to
	return nil
}

// Set stores value for column at date, creating the row when the date is new.
func (t *Table) Set(date time.Time, column string, value null.Float) error {
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("error setting %s on %s: %w", column, ex.FmtShort(date), ErrUnknownColumn)
	}
	t.row(ex.FmtShort(date))[i] = value
	return nil
}

// Get returns the cell at date and whether the table has that date at all.
func (t *Table) Get(date time.Time, column string) (null.Float, bool) {
	i, ok := t.index[column]
	if !ok {
		return null.Float{}, false
	}
	row, ok := t.rows[ex.FmtShort(date)]
	if !ok {
		return null.Float{}, false
	}
	return row[i], true
}

// Column returns a column's cells in date order.
func (t *Table) Column(name string) ([]null.Float, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("error reading column %q: %w", name, ErrUnknownColumn)
	}
	t.Sort()
	res := make([]null.Float, len(t.dates))
	for n, d := range t.dates {
		res[n] = t.rows[d][i]
	}
	return res, nil
}

func (t *Table) Sort() {
	if t.sorted {
		return
	}
	slices.Sort(t.dates)
	t.sorted = true
}

// Clip drops every date outside [start, end]. A zero bound is open.
func (t *Table) Clip(start, end time.Time) {
	lo, hi := "", ""
	if !start.IsZero() {
		lo = ex.FmtShort(start)
	}
	if !end.IsZero() {
		hi = ex.FmtShort(end)
	}

	kept := t.dates[:0]
	for _, d := range t.dates {
		if (lo != "" && d < lo) || (hi != "" && d > hi) {
			delete(t.rows, d)
			continue
		}
		kept = append(kept, d)
	}
	t.dates = kept
}

// PctChange writes (v[t] - v[t-1]) / v[t-1] into dst, where t-1 is the previous non-null
// observation of src. The first observation, rows where src is null, and rows following a
// zero value are null.
func (t *Table) PctChange(src, dst string) error {
	si, ok := t.index[src]
	if !ok {
		return fmt.Errorf("error computing returns of %q: %w", src, ErrUnknownColumn)
	}
	if src == dst {
		return fmt.Errorf("error computing returns of %q: destination is the source column", src)
	}
	if !t.HasColumn(dst) {
		if err := t.AddColumn(dst); err != nil {
			return err
		}
	}
	di := t.index[dst]

	t.Sort()
	var prev null.Float
	for _, d := range t.dates {
		row := t.rows[d]
		cur := row[si]
		if !cur.Valid {
			row[di] = null.Float{}
			continue
		}
		if prev.Valid && prev.Float64 != 0 {
			row[di] = null.FloatFrom((cur.Float64 - prev.Float64) / prev.Float64)
		} else {
			row[di] = null.Float{}
		}
		prev = cur
	}
	return nil
}

// ForwardFill replaces nulls in column with the most recent prior value. Leading nulls stay null.
func (t *Table) ForwardFill(column string) error {
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("error forward filling %q: %w", column, ErrUnknownColumn)
	}

	t.Sort()
	var last null.Float
	for _, d := range t.dates {
		row := t.rows[d]
		if row[i].Valid {
			last = row[i]
		} else if last.Valid {
			row[i] = last
		}
	}
	return nil
}

// Rows returns a sorted copy of the table contents.
func (t *Table) Rows() []Row {
	t.Sort()
	res := make([]Row, len(t.dates))
	for n, d := range t.dates {
		res[n] = Row{Date: d, Values: slices.Clone(t.rows[d])}
	}
	return res
}

// Concat outer joins tables on date. Columns keep argument order and must be unique.
func Concat(tables ...*Table) (*Table, error) {
	var columns []string
	for _, tbl := range tables {
		columns = append(columns, tbl.columns...)
	}
	res, err := New(columns...)
	if err != nil {
		return nil, fmt.Errorf("error concatenating tables: %w", err)
	}

	offset := 0
	for _, tbl := range tables {
		for _, d := range tbl.dates {
			copy(res.row(d)[offset:], tbl.rows[d])
		}
		offset += len(tbl.columns)
	}
	res.Sort()
	return res, nil
}

func (t *Table) row(date string) []null.Float {
	if row, ok := t.rows[date]; ok {
		return row
	}
	row := make([]null.Float, len(t.columns))
	t.rows[date] = row
	if n := len(t.dates); n > 0 && t.dates[n-1] > date {
		t.sorted = false
	}
	t.dates = append(t.dates, date)
	return row
}
