package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	ex "histdata/data/extensions"
	"histdata/data/frame"
	"histdata/data/repos"
	"histdata/service/config"
	sm "histdata/service/models"
)

// Run fetches every series of the plan, merges them on date, fills, clips and writes the
// result to every configured sink. Under the abort policy the first failed fetch ends the run
// before anything is written; under continue the failed series stay in the output as nulls.
func (sc *ServiceContext) Run(plan []sm.Series) (*sm.RunReport, error) {
	start := time.Now()
	log := sc.logger().With("run_id", sc.RunID)
	report := &sm.RunReport{RunID: sc.RunID}

	if err := ValidatePlan(plan); err != nil {
		return report, err
	}

	log.Info("starting run", "series", len(plan), "parallel", sc.Config.Pipeline.Parallel, "on_error", sc.Config.Pipeline.OnError)
	tables, outcomes, err := sc.fetchAll(plan)
	for _, o := range outcomes {
		if o != nil {
			report.Outcomes = append(report.Outcomes, o)
		}
	}
	if err != nil {
		log.Error("run aborted", "error", err, "elapsed", time.Since(start))
		sc.finish(report, start, false)
		return report, err
	}

	log.Info("merging series", "tables", len(tables), "elapsed", time.Since(start))
	merged, err := sc.merge(plan, tables)
	if err != nil {
		sc.finish(report, start, false)
		return report, err
	}
	report.Rows = merged.Len()
	report.Columns = merged.Columns()

	for _, w := range sc.Writers {
		log.Info("writing table", "sink", w.Name(), "rows", merged.Len(), "columns", len(report.Columns))
		if err := w.WriteTable(sc.Context, merged); err != nil {
			sc.finish(report, start, false)
			return report, fmt.Errorf("error writing %s output: %w", w.Name(), err)
		}
		if csv, ok := w.(*repos.CSVRepo); ok {
			report.OutputPath = csv.Path()
		}
	}

	stats, err := GetReturnStatistics(merged, returnColumns(plan), sm.Daily)
	if err != nil {
		sc.finish(report, start, false)
		return report, fmt.Errorf("error computing return statistics: %w", err)
	}
	report.Statistics = stats
	for _, s := range stats {
		log.Info("return statistics",
			"column", s.Column,
			"count", s.Count,
			"annualized_mean", s.AnnualizedMean,
			"annualized_volatility", s.AnnualizedVolatility,
			"annualized_over", describeAnnualization(sm.Daily))
	}
	if path := sc.Config.Output.SummaryPath; path != "" {
		header, records := StatisticsRecords(stats)
		if err := repos.WriteRecords(path, header, records); err != nil {
			sc.finish(report, start, false)
			return report, fmt.Errorf("error writing statistics: %w", err)
		}
	}

	sc.finish(report, start, true)
	log.Info("run complete",
		"rows", report.Rows,
		"failed_series", len(report.Failed()),
		"output", report.OutputPath,
		"elapsed", report.Duration)
	return report, nil
}

// merge outer joins the per-series tables, forward fills the low frequency columns over the
// merged index and clips to the output window.
func (sc *ServiceContext) merge(plan []sm.Series, tables []*frame.Table) (*frame.Table, error) {
	present := make([]*frame.Table, 0, len(tables))
	for _, t := range tables {
		if t != nil {
			present = append(present, t)
		}
	}

	merged, err := frame.Concat(present...)
	if err != nil {
		return nil, err
	}

	for _, s := range plan {
		if !s.FillForward {
			continue
		}
		if err := merged.ForwardFill(s.Name); err != nil {
			return nil, err
		}
	}

	merged.Clip(sc.Window.OutputStart, sc.Window.OutputEnd)
	merged.Sort()
	return merged, nil
}

func (sc *ServiceContext) fetchAll(plan []sm.Series) ([]*frame.Table, []*sm.FetchOutcome, error) {
	tables := make([]*frame.Table, len(plan))
	outcomes := make([]*sm.FetchOutcome, len(plan))
	abort := sc.Config.Pipeline.OnError != config.OnErrorContinue

	// lane runs the given plan positions one after another
	lane := func(ctx context.Context, positions []int) error {
		for _, i := range positions {
			if err := ctx.Err(); err != nil {
				return err
			}
			tables[i], outcomes[i] = sc.fetchSeries(ctx, plan[i])
			if outcomes[i].Err != nil && abort {
				return outcomes[i].Err
			}
		}
		return nil
	}

	positions := make([]int, len(plan))
	for i := range plan {
		positions[i] = i
	}

	if !sc.Config.Pipeline.Parallel {
		return tables, outcomes, lane(sc.Context, positions)
	}

	// one lane per provider so each provider's pacing still holds
	providers, lanes := ex.GroupBy(positions, func(i int) string { return plan[i].Provider })
	g, ctx := errgroup.WithContext(sc.Context)
	for _, p := range providers {
		g.Go(func() error { return lane(ctx, lanes[p]) })
	}
	return tables, outcomes, g.Wait()
}

// fetchSeries never returns a nil table: a failed fetch yields the series columns with no rows.
func (sc *ServiceContext) fetchSeries(ctx context.Context, s sm.Series) (*frame.Table, *sm.FetchOutcome) {
	start := time.Now()
	log := sc.logger().With("run_id", sc.RunID, "series", s.Name, "provider", s.Provider, "symbol", s.Label())
	outcome := &sm.FetchOutcome{Series: s}
	defer func() {
		outcome.Duration = time.Since(start)
		sc.Metrics.ObserveFetch(outcome)
	}()

	table, err := frame.New(s.Columns()...)
	if err != nil {
		outcome.Err = fmt.Errorf("error preparing %s: %w", s.Name, err)
		return nil, outcome
	}

	fail := func(err error) (*frame.Table, *sm.FetchOutcome) {
		outcome.Err = fmt.Errorf("error fetching %s: %w", s.Label(), err)
		log.Error("fetch failed", "error", err, "elapsed", time.Since(start))
		return table, outcome
	}

	src, err := sc.source(s.Provider)
	if err != nil {
		return fail(err)
	}

	log.Debug("fetching series")
	res, err := src.Fetch(ctx, s)
	if err != nil {
		return fail(err)
	}

	for _, o := range res.Observations {
		if !o.Value.Valid {
			outcome.Skipped++
			continue
		}
		if err := table.Set(o.Date, s.Name, o.Value); err != nil {
			return fail(err)
		}
	}
	outcome.Skipped += res.Skipped

	table.Clip(s.Start, s.End)
	table.Sort()
	if s.Returns {
		if err := table.PctChange(s.Name, s.ReturnColumnName()); err != nil {
			return fail(err)
		}
	}

	outcome.Rows = table.Len()
	log.Info("fetched series", "rows", outcome.Rows, "skipped", outcome.Skipped, "elapsed", time.Since(start))
	return table, outcome
}

func (sc *ServiceContext) finish(report *sm.RunReport, start time.Time, succeeded bool) {
	report.Duration = time.Since(start)
	sc.Metrics.ObserveRun(report.Rows, report.Duration, succeeded)

	path := sc.Config.Output.MetricsPath
	if path == "" || sc.Metrics == nil {
		return
	}
	if err := sc.Metrics.WriteTextfile(path); err != nil {
		sc.logger().Warn("metrics not written", "run_id", sc.RunID, "error", err)
	}
}
