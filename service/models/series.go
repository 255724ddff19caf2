package models

import "time"

const (
	ProviderAlphaVantage = "alpha_vantage"
	ProviderYahoo        = "yahoo"
)

// Series is one entry of the fetch plan and the columns it contributes to the output.
type Series struct {
	Name         string
	Provider     string
	Symbol       string
	Function     string
	Interval     string
	Returns      bool
	ReturnColumn string
	FillForward  bool
	Start        time.Time
	End          time.Time
}

// Label identifies the series in logs and errors.
func (s Series) Label() string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return s.Function
}

// Columns lists the output columns of the series in order.
func (s Series) Columns() []string {
	if s.Returns {
		return []string{s.Name, s.ReturnColumnName()}
	}
	return []string{s.Name}
}

func (s Series) ReturnColumnName() string {
	if s.ReturnColumn != "" {
		return s.ReturnColumn
	}
	return s.Name + "_return"
}

// FetchOutcome is the per-series result of a run. Err is nil on success.
type FetchOutcome struct {
	Series   Series
	Rows     int
	Skipped  int
	Duration time.Duration
	Err      error
}

type RunReport struct {
	RunID      string
	Rows       int
	Columns    []string
	Outcomes   []*FetchOutcome
	Statistics []*ReturnStatistics
	OutputPath string
	Duration   time.Duration
}

// Failed lists the outcomes that carry an error.
func (r *RunReport) Failed() []*FetchOutcome {
	var res []*FetchOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			res = append(res, o)
		}
	}
	return res
}
