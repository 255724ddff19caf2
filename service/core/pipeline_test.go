package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "histdata/data/extensions"
	dm "histdata/data/models"
	r "histdata/data/repos"
	"histdata/service/config"
	sm "histdata/service/models"
)

func day(s string) time.Time {
	d, err := ex.ParseShort(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeProvider serves fixed observations per series name and records the call order.
type fakeProvider struct {
	mu     sync.Mutex
	data   map[string]map[string]null.Float
	fail   map[string]error
	skip   map[string]int
	called []string
}

func (f *fakeProvider) Fetch(_ context.Context, s sm.Series) (*dm.SeriesResult, error) {
	f.mu.Lock()
	f.called = append(f.called, s.Name)
	f.mu.Unlock()

	if err := f.fail[s.Name]; err != nil {
		return nil, err
	}
	res := &dm.SeriesResult{Symbol: s.Symbol, Skipped: f.skip[s.Name]}
	for d, v := range f.data[s.Name] {
		res.Observations = append(res.Observations, &dm.Observation{Date: day(d), Value: v})
	}
	return res, nil
}

func values(kv ...any) map[string]null.Float {
	res := make(map[string]null.Float)
	for i := 0; i < len(kv); i += 2 {
		res[kv[i].(string)] = null.FloatFrom(kv[i+1].(float64))
	}
	return res
}

func newServiceContext(t *testing.T, provider *fakeProvider, window config.Window) (*ServiceContext, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out", "merged.csv")
	cfg := config.Default()
	cfg.Output.Path = out

	return &ServiceContext{
		Context: context.Background(),
		RunID:   "test-run",
		Config:  cfg,
		Window:  window,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sources: map[string]Source{
			sm.ProviderAlphaVantage: provider,
			sm.ProviderYahoo:        provider,
		},
		Writers: []r.TableWriter{r.NewCSVRepo(out)},
		Metrics: NewMetrics(),
	}, out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func Test_Run_TwoSeriesScenario(t *testing.T) {
	provider := &fakeProvider{data: map[string]map[string]null.Float{
		"A": values("2020-01-01", 100.0, "2020-01-02", 110.0),
		"B": values("2020-01-01", 5.0),
	}}
	window := config.Window{OutputStart: day("2020-01-01"), OutputEnd: day("2020-01-02")}
	sc, out := newServiceContext(t, provider, window)

	plan := []sm.Series{
		{Name: "A", Provider: sm.ProviderAlphaVantage, Symbol: "A", Returns: true},
		{Name: "B", Provider: sm.ProviderYahoo, Symbol: "B"},
	}

	report, err := sc.Run(plan)
	require.NoError(t, err)

	expected := "date,A,A_return,B\n" +
		"2020-01-01,100,,5\n" +
		"2020-01-02,110,0.1,\n"
	assert.Equal(t, expected, readFile(t, out))

	ex.AssertAreEqual(t, "rows", 2, report.Rows)
	ex.AssertAreEqual(t, "output path", out, report.OutputPath)
	assert.Equal(t, []string{"A", "A_return", "B"}, report.Columns)
	assert.Empty(t, report.Failed())
	require.Len(t, report.Statistics, 1)
	ex.AssertAreEqual(t, "return count", 1, report.Statistics[0].Count)
}

func Test_Run_DefaultWindowsAndForwardFill(t *testing.T) {
	provider := &fakeProvider{data: map[string]map[string]null.Float{
		"SPY_adj_close": values(
			"2011-08-10", 99.0, // before the fetch window
			"2011-08-11", 100.0,
			"2011-08-12", 125.0,
			"2011-08-15", 100.0,
			"2011-09-01", 150.0,
		),
		"CPI": values("2011-07-01", 225.0, "2011-08-01", 226.5, "2011-09-01", 226.6),
	}}
	cfg := config.Default()
	window, err := cfg.Window.Parse()
	require.NoError(t, err)
	sc, out := newServiceContext(t, provider, window)

	plan := DefaultPlan(window)
	keep := []sm.Series{}
	for _, s := range plan {
		if s.Name == "SPY_adj_close" || s.Name == "CPI" {
			keep = append(keep, s)
		}
	}
	require.Len(t, keep, 2)

	_, err = sc.Run(keep)
	require.NoError(t, err)

	expected := "date,SPY_adj_close,SPY_return,CPI\n" +
		"2011-08-12,125,0.25,226.5\n" +
		"2011-08-15,100,-0.2,226.5\n" +
		"2011-09-01,150,0.5,226.6\n"
	assert.Equal(t, expected, readFile(t, out))
}

func Test_Run_AbortOnError(t *testing.T) {
	provider := &fakeProvider{
		data: map[string]map[string]null.Float{"A": values("2020-01-01", 1.0)},
		fail: map[string]error{"B": errors.New("upstream refused")},
	}
	sc, out := newServiceContext(t, provider, config.Window{})

	plan := []sm.Series{
		{Name: "A", Provider: sm.ProviderAlphaVantage},
		{Name: "B", Provider: sm.ProviderAlphaVantage},
		{Name: "C", Provider: sm.ProviderAlphaVantage},
	}

	report, err := sc.Run(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream refused")

	assert.Equal(t, []string{"A", "B"}, provider.called)
	require.Len(t, report.Outcomes, 2)
	require.Len(t, report.Failed(), 1)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	assert.InDelta(t, 1, testutil.ToFloat64(sc.Metrics.fetches.WithLabelValues(sm.ProviderAlphaVantage, "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sc.Metrics.fetches.WithLabelValues(sm.ProviderAlphaVantage, "ok")), 0)
}

func Test_Run_ContinueOnError(t *testing.T) {
	provider := &fakeProvider{
		data: map[string]map[string]null.Float{"A": values("2020-01-01", 1.0, "2020-01-02", 2.0)},
		fail: map[string]error{"B": errors.New("not found")},
		skip: map[string]int{"A": 3},
	}
	sc, out := newServiceContext(t, provider, config.Window{})
	sc.Config.Pipeline.OnError = config.OnErrorContinue

	plan := []sm.Series{
		{Name: "A", Provider: sm.ProviderAlphaVantage},
		{Name: "B", Provider: sm.ProviderYahoo, Returns: true},
	}

	report, err := sc.Run(plan)
	require.NoError(t, err)

	expected := "date,A,B,B_return\n" +
		"2020-01-01,1,,\n" +
		"2020-01-02,2,,\n"
	assert.Equal(t, expected, readFile(t, out))

	failed := report.Failed()
	require.Len(t, failed, 1)
	ex.AssertAreEqual(t, "failed series", "B", failed[0].Series.Name)
	ex.AssertAreEqual(t, "skipped", 3, report.Outcomes[0].Skipped)
	assert.InDelta(t, 3, testutil.ToFloat64(sc.Metrics.skipped.WithLabelValues("A")), 0)
}

func Test_Run_ParallelMatchesSequential(t *testing.T) {
	data := map[string]map[string]null.Float{
		"A": values("2020-01-01", 10.0, "2020-01-02", 11.0, "2020-01-03", 12.1),
		"B": values("2020-01-02", 1.5),
		"C": values("2020-01-01", 7.0, "2020-01-03", 8.0),
	}
	plan := []sm.Series{
		{Name: "A", Provider: sm.ProviderAlphaVantage, Returns: true},
		{Name: "B", Provider: sm.ProviderYahoo},
		{Name: "C", Provider: sm.ProviderAlphaVantage, Returns: true},
	}

	run := func(parallel bool) string {
		sc, out := newServiceContext(t, &fakeProvider{data: data}, config.Window{})
		sc.Config.Pipeline.Parallel = parallel
		_, err := sc.Run(plan)
		require.NoError(t, err)
		return readFile(t, out)
	}

	sequential := run(false)
	assert.Equal(t, sequential, run(true))
	assert.True(t, strings.HasPrefix(sequential, "date,A,A_return,B,C,C_return\n"))
}

func Test_Run_UnknownProviderAndDuplicateColumns(t *testing.T) {
	sc, _ := newServiceContext(t, &fakeProvider{}, config.Window{})

	_, err := sc.Run([]sm.Series{{Name: "X", Provider: "bloomberg"}})
	require.ErrorIs(t, err, ErrUnknownProvider)

	_, err = sc.Run([]sm.Series{
		{Name: "A", Provider: sm.ProviderYahoo, Returns: true},
		{Name: "A_return", Provider: sm.ProviderYahoo},
	})
	require.Error(t, err)
}

func Test_Run_WritesSummaryAndMetrics(t *testing.T) {
	provider := &fakeProvider{data: map[string]map[string]null.Float{
		"A": values("2020-01-01", 100.0, "2020-01-02", 110.0, "2020-01-03", 99.0),
	}}
	sc, _ := newServiceContext(t, provider, config.Window{})
	dir := t.TempDir()
	sc.Config.Output.SummaryPath = filepath.Join(dir, "summary.csv")
	sc.Config.Output.MetricsPath = filepath.Join(dir, "metrics", "histdata.prom")

	_, err := sc.Run([]sm.Series{{Name: "A", Provider: sm.ProviderYahoo, Returns: true}})
	require.NoError(t, err)

	summary := readFile(t, sc.Config.Output.SummaryPath)
	assert.True(t, strings.HasPrefix(summary, "column,count,mean,std_dev,min,max,annualized_mean,annualized_volatility\nA_return,2,"))

	metrics := readFile(t, sc.Config.Output.MetricsPath)
	assert.Contains(t, metrics, `histdata_fetch_total{outcome="ok",provider="yahoo"} 1`)
	assert.Contains(t, metrics, "histdata_output_rows 3")
}
