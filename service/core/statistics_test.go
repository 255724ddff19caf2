package core

import (
	"math"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "histdata/data/extensions"
	"histdata/data/frame"
	sm "histdata/service/models"
)

func Test_GetReturnStatistics(t *testing.T) {
	tbl, err := frame.New("r", "single", "empty")
	require.NoError(t, err)
	for d, v := range map[string]float64{"2020-01-02": 0.1, "2020-01-03": -0.1, "2020-01-06": 0.2} {
		require.NoError(t, tbl.Set(day(d), "r", null.FloatFrom(v)))
	}
	require.NoError(t, tbl.Set(day("2020-01-01"), "r", null.Float{}))
	require.NoError(t, tbl.Set(day("2020-01-02"), "single", null.FloatFrom(0.05)))

	stats, err := GetReturnStatistics(tbl, []string{"r", "single", "empty"}, sm.Daily)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	r := stats[0]
	ex.AssertAreEqual(t, "count", 3, r.Count)
	assert.InDelta(t, 0.2/3, r.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.07/3), r.StdDev, 1e-12)
	assert.InDelta(t, -0.1, r.Min, 1e-12)
	assert.InDelta(t, 0.2, r.Max, 1e-12)
	assert.InDelta(t, 0.2/3*252, r.AnnualizedMean, 1e-9)
	assert.InDelta(t, math.Sqrt(0.07/3)*math.Sqrt(252), r.AnnualizedVolatility, 1e-9)

	single := stats[1]
	ex.AssertAreEqual(t, "single count", 1, single.Count)
	assert.InDelta(t, 0.05, single.Mean, 1e-12)
	ex.AssertAreEqual(t, "single std dev", 0.0, single.StdDev)

	empty := stats[2]
	ex.AssertAreEqual(t, "empty count", 0, empty.Count)
	assert.False(t, math.IsNaN(empty.Mean))

	_, err = GetReturnStatistics(tbl, []string{"missing"}, sm.Daily)
	require.ErrorIs(t, err, frame.ErrUnknownColumn)
}

func Test_StatisticsRecords(t *testing.T) {
	header, records := StatisticsRecords([]*sm.ReturnStatistics{{Column: "SPY_return", Count: 2, Mean: 0.5}})
	ex.AssertAreEqual(t, "columns", 8, len(header))
	require.Len(t, records, 1)
	assert.Equal(t, []string{"SPY_return", "2", "0.5", "0", "0", "0", "0", "0"}, records[0])
	ex.AssertAreEqual(t, "annualization", "252 days", describeAnnualization(sm.Daily))
}
