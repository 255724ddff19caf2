package core

import (
	"fmt"
	"strings"

	"histdata/data/frame"
	av "histdata/service/api/alpha_vantage"
	"histdata/service/config"
	sm "histdata/service/models"
)

const dailyAdjusted = "TIME_SERIES_DAILY_ADJUSTED"

// DefaultPlan is the full equity, commodity, macro and market index set, in output column order.
func DefaultPlan(w config.Window) []sm.Series {
	equity := func(ticker string) sm.Series {
		return sm.Series{
			Name:         ticker + "_adj_close",
			Provider:     sm.ProviderAlphaVantage,
			Symbol:       ticker,
			Function:     dailyAdjusted,
			Returns:      true,
			ReturnColumn: ticker + "_return",
			Start:        w.FetchStart,
			End:          w.FetchEnd,
		}
	}
	macro := func(name string, fn av.DataFunction, interval string, returns, fill bool) sm.Series {
		return sm.Series{
			Name:        name,
			Provider:    sm.ProviderAlphaVantage,
			Function:    string(fn),
			Interval:    interval,
			Returns:     returns,
			FillForward: fill,
			Start:       w.MacroStart,
			End:         w.FetchEnd,
		}
	}
	market := func(name, symbol string, returns bool) sm.Series {
		return sm.Series{
			Name:     name,
			Provider: sm.ProviderYahoo,
			Symbol:   symbol,
			Returns:  returns,
			Start:    w.FetchStart,
			End:      w.FetchEnd,
		}
	}

	return []sm.Series{
		equity("SPY"),
		equity("DIA"),
		equity("QQQ"),
		macro("wti", av.WTI, "daily", true, false),
		macro("brent", av.Brent, "daily", true, false),
		macro("natural_gas", av.NaturalGas, "daily", true, false),
		macro("CPI", av.CPI, "monthly", false, true),
		macro("fed_funds_rate", av.FederalFundsRate, "daily", false, false),
		market("BTC-USD", "BTC-USD", false),
		market("^VIX", "^VIX", false),
		market("VXUS", "VXUS", true),
		market("usd_index", "DX-Y.NYB", false),
	}
}

// PlanFromConfig turns a configured series list into a plan; an empty list means DefaultPlan.
func PlanFromConfig(cfg config.Config, w config.Window) ([]sm.Series, error) {
	if len(cfg.Series) == 0 {
		return DefaultPlan(w), nil
	}

	plan := make([]sm.Series, 0, len(cfg.Series))
	for i, sc := range cfg.Series {
		s := sm.Series{
			Name:         sc.Name,
			Provider:     sc.Provider,
			Symbol:       sc.Symbol,
			Function:     strings.ToUpper(sc.Function),
			Interval:     strings.ToLower(sc.Interval),
			Returns:      sc.Returns,
			ReturnColumn: sc.ReturnColumn,
			FillForward:  sc.FillForward,
			Start:        w.FetchStart,
			End:          w.FetchEnd,
		}
		if sc.Macro {
			s.Start = w.MacroStart
		}
		if s.Interval == "" {
			s.Interval = "daily"
		}

		switch s.Provider {
		case sm.ProviderAlphaVantage:
			if s.Function == "" {
				s.Function = dailyAdjusted
			}
			if strings.HasPrefix(s.Function, "TIME_SERIES_") && s.Symbol == "" {
				return nil, fmt.Errorf("series %d (%s): symbol is required for %s", i, s.Name, s.Function)
			}
		case sm.ProviderYahoo:
			if s.Symbol == "" {
				return nil, fmt.Errorf("series %d (%s): symbol is required for yahoo", i, s.Name)
			}
		default:
			return nil, fmt.Errorf("series %d (%s): %w %q", i, s.Name, ErrUnknownProvider, s.Provider)
		}
		plan = append(plan, s)
	}

	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ValidatePlan rejects plans whose series would write the same output column twice.
func ValidatePlan(plan []sm.Series) error {
	seen := make(map[string]string)
	for _, s := range plan {
		for _, col := range s.Columns() {
			if prev, ok := seen[col]; ok {
				return fmt.Errorf("column %q of %s already used by %s: %w", col, s.Label(), prev, frame.ErrDuplicateColumn)
			}
			seen[col] = s.Label()
		}
	}
	return nil
}
