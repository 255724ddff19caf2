package models

import (
	"time"

	"github.com/guregu/null/v6"

	ex "histdata/data/extensions"
)

type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
	// Skipped counts records dropped because the price field was not numeric.
	Skipped int
}

type TimeSeriesMetadata struct {
	Information   null.String
	Symbol        string
	LastRefreshed time.Time
	OutputSize    null.String
	TimeZone      string
}

type TimeSeriesData struct {
	Timestamp        time.Time
	Open             null.Float
	High             null.Float
	Low              null.Float
	Close            null.Float
	AdjustedClose    null.Float
	Volume           null.Float
	DividendAmount   null.Float
	SplitCoefficient null.Float
}

// Observations projects the result onto adjusted close, or close for unadjusted series.
func (r *TimeSeriesResult) Observations(adjusted bool) []*Observation {
	res := make([]*Observation, 0, len(r.TimeSeries))
	for _, ts := range r.TimeSeries {
		v := ts.Close
		if adjusted {
			v = ts.AdjustedClose
		}
		res = append(res, &Observation{Date: ex.Date(ts.Timestamp), Value: v})
	}
	return res
}

// DataSeriesResult is the shape shared by the commodity and economic indicator endpoints.
type DataSeriesResult struct {
	Name     string
	Interval string
	Unit     string
	Data     []*Observation
	Skipped  int
}
