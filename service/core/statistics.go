package core

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"histdata/data/frame"
	sm "histdata/service/models"
)

// GetReturnStatistics summarizes each return column, ignoring nulls. Annualization assumes
// one observation per period of annualizationFactor (252 for daily).
func GetReturnStatistics(t *frame.Table, columns []string, annualizationFactor int) ([]*sm.ReturnStatistics, error) {
	res := make([]*sm.ReturnStatistics, 0, len(columns))
	for _, col := range columns {
		cells, err := t.Column(col)
		if err != nil {
			return nil, err
		}

		values := make([]float64, 0, len(cells))
		for _, c := range cells {
			if c.Valid {
				values = append(values, c.Float64)
			}
		}

		s := &sm.ReturnStatistics{Column: col, Count: len(values)}
		if len(values) > 0 {
			s.Mean = stat.Mean(values, nil)
			s.Min = floats.Min(values)
			s.Max = floats.Max(values)
			s.AnnualizedMean = s.Mean * float64(annualizationFactor)
		}
		// sample deviation needs two points
		if len(values) > 1 {
			s.StdDev = stat.StdDev(values, nil)
			s.AnnualizedVolatility = s.StdDev * math.Sqrt(float64(annualizationFactor))
		}
		res = append(res, s)
	}
	return res, nil
}

func StatisticsRecords(stats []*sm.ReturnStatistics) (header []string, records [][]string) {
	header = []string{"column", "count", "mean", "std_dev", "min", "max", "annualized_mean", "annualized_volatility"}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, s := range stats {
		records = append(records, []string{
			s.Column,
			strconv.Itoa(s.Count),
			f(s.Mean),
			f(s.StdDev),
			f(s.Min),
			f(s.Max),
			f(s.AnnualizedMean),
			f(s.AnnualizedVolatility),
		})
	}
	return
}

func returnColumns(plan []sm.Series) []string {
	var res []string
	for _, s := range plan {
		if s.Returns {
			res = append(res, s.ReturnColumnName())
		}
	}
	return res
}

func describeAnnualization(factor int) string {
	if unit := sm.ConvertFrequencyToString(factor); unit != "" {
		return fmt.Sprintf("%d %s", factor, unit)
	}
	return strconv.Itoa(factor)
}
