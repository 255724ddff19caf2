package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type PriceHistoryResult struct {
	Symbol           string
	Currency         string
	ExchangeTimezone string
	Prices           []*PriceBar
	Skipped          int
}

type PriceBar struct {
	Date          time.Time
	Close         null.Float
	AdjustedClose null.Float
}

func (r *PriceHistoryResult) Observations() []*Observation {
	res := make([]*Observation, 0, len(r.Prices))
	for _, p := range r.Prices {
		res = append(res, &Observation{Date: p.Date, Value: p.AdjustedClose})
	}
	return res
}
