package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Observation is one dated value of a series. Date is a calendar date at midnight UTC.
type Observation struct {
	Date  time.Time
	Value null.Float
}

// SeriesResult is a fetched series reduced to its value of interest.
type SeriesResult struct {
	Symbol       string
	Observations []*Observation
	Skipped      int
}
