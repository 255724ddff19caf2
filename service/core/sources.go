package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dm "histdata/data/models"
	"histdata/service/api"
	av "histdata/service/api/alpha_vantage"
	"histdata/service/api/yahoo"
	"histdata/service/config"
	sm "histdata/service/models"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Source fetches one planned series as dated observations.
type Source interface {
	Fetch(ctx context.Context, s sm.Series) (*dm.SeriesResult, error)
}

type SourceFunc func(ctx context.Context, s sm.Series) (*dm.SeriesResult, error)

func (f SourceFunc) Fetch(ctx context.Context, s sm.Series) (*dm.SeriesResult, error) {
	return f(ctx, s)
}

type AlphaVantageSource struct {
	Client *av.AlphaVantageClient
}

func (src AlphaVantageSource) Fetch(ctx context.Context, s sm.Series) (*dm.SeriesResult, error) {
	if ts, err := av.ParseTimeSeries(s.Function); err == nil {
		res, err := src.Client.StockTimeSeries(ctx, ts, s.Symbol)
		if err != nil {
			return nil, err
		}
		return &dm.SeriesResult{
			Symbol:       res.Metadata.Symbol,
			Observations: res.Observations(ts.IsAdjusted()),
			Skipped:      res.Skipped,
		}, nil
	}

	fn, err := av.ParseDataFunction(s.Function)
	if err != nil {
		return nil, err
	}
	interval, err := api.ParseTimeInterval(s.Interval)
	if err != nil {
		return nil, err
	}

	var res *dm.DataSeriesResult
	if fn.IsCommodity() {
		res, err = src.Client.Commodity(ctx, fn, interval)
	} else {
		res, err = src.Client.EconomicIndicator(ctx, fn, interval)
	}
	if err != nil {
		return nil, err
	}
	return &dm.SeriesResult{Symbol: string(fn), Observations: res.Data, Skipped: res.Skipped}, nil
}

type YahooSource struct {
	Client *yahoo.YahooClient
}

func (src YahooSource) Fetch(ctx context.Context, s sm.Series) (*dm.SeriesResult, error) {
	res, err := src.Client.PriceHistory(ctx, s.Symbol, s.Start, s.End)
	if err != nil {
		return nil, err
	}
	return &dm.SeriesResult{Symbol: res.Symbol, Observations: res.Observations(), Skipped: res.Skipped}, nil
}

// NewSources builds the live provider clients, each pacing its own requests.
func NewSources(cfg config.Config, logger *slog.Logger) map[string]Source {
	avClient := av.NewClient(api.ClientFactory(
		cfg.AlphaVantage.Host,
		cfg.AlphaVantage.APIKey,
		cfg.AlphaVantage.Timeout,
		api.WithPause(cfg.AlphaVantage.Pause),
		api.WithLogger(logger),
	))

	yahooClient := yahoo.NewClient(api.ClientFactory(
		cfg.Yahoo.Host,
		"",
		cfg.Yahoo.Timeout,
		api.WithPause(cfg.Yahoo.Pause),
		api.WithUserAgent(cfg.Yahoo.UserAgent),
		api.WithLogger(logger),
	))

	return map[string]Source{
		sm.ProviderAlphaVantage: AlphaVantageSource{Client: avClient},
		sm.ProviderYahoo:        YahooSource{Client: yahooClient},
	}
}

func (sc *ServiceContext) source(provider string) (Source, error) {
	src, ok := sc.Sources[provider]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}
	return src, nil
}
