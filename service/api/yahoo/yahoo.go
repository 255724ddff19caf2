package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	e "histdata/data/extensions"
	m "histdata/data/models"
	c "histdata/service/api"
)

const (
	HostDefault = "query2.finance.yahoo.com"
	Provider    = "yahoo"
)

const (
	defaultTimeout = time.Second * 30
	chartPath      = "/v8/finance/chart/"
	dailyInterval  = "1d"
)

type YahooClient struct {
	*c.Client
}

// GetClient builds a client for the public chart api, which needs no key.
func GetClient(opts ...c.ClientOption) *YahooClient {
	return NewClient(c.ClientFactory(HostDefault, "", defaultTimeout, opts...))
}

func NewClient(client *c.Client) *YahooClient {
	return &YahooClient{client}
}

// PriceHistory returns daily bars for symbol between start and end, both inclusive.
// Bars without an adjusted close are dropped and counted in Skipped.
func (yc *YahooClient) PriceHistory(ctx context.Context, symbol string, start, end time.Time) (*m.PriceHistoryResult, error) {
	if yc == nil || yc.Client == nil {
		return nil, fmt.Errorf("error requesting %s: yahoo client has not been set", symbol)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("error requesting %s: end %s is before start %s", symbol, e.FmtShort(end), e.FmtShort(start))
	}

	response, err := yc.Connection().Request(ctx, buildRequestPath(symbol, start, end))
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", symbol, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response body: %w", symbol, err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, &c.ResponseError{
			Provider: Provider,
			Query:    symbol,
			Message:  fmt.Sprintf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description),
		}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("error requesting %s: %w", symbol, &c.StatusError{
			Provider:   Provider,
			StatusCode: response.StatusCode,
			Body:       excerpt(body),
		})
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("error unmarshaling %s response: %w", symbol, decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, &c.ResponseError{Provider: Provider, Query: symbol, Key: "chart.result", Message: "empty result"}
	}

	return parseChartResult(symbol, chart.Chart.Result[0])
}

func buildRequestPath(symbol string, start, end time.Time) *url.URL {
	endpoint := &url.URL{Path: chartPath + symbol}

	query := endpoint.Query()
	query.Set("period1", strconv.FormatInt(e.Date(start).Unix(), 10))
	query.Set("period2", strconv.FormatInt(e.Date(end).AddDate(0, 0, 1).Unix(), 10))
	query.Set("interval", dailyInterval)
	query.Set("includeAdjustedClose", "true")
	query.Set("events", "div,splits")
	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseChartResult(symbol string, result chartResult) (*m.PriceHistoryResult, error) {
	location := exchangeLocation(result.Meta)

	var closes, adjCloses []null.Float
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}
	if adjCloses == nil {
		return nil, &c.ResponseError{Provider: Provider, Query: symbol, Key: "indicators.adjclose", Message: "no adjusted close series"}
	}
	if len(adjCloses) != len(result.Timestamp) {
		return nil, fmt.Errorf("error parsing %s: %d timestamps but %d adjusted closes", symbol, len(result.Timestamp), len(adjCloses))
	}

	res := &m.PriceHistoryResult{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeTimezone: result.Meta.ExchangeTimezoneName,
	}
	if res.Symbol == "" {
		res.Symbol = symbol
	}

	// yahoo repeats the live bar for the current session, last one wins
	byDate := make(map[time.Time]*m.PriceBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if !adjCloses[i].Valid {
			res.Skipped++
			continue
		}

		bar := &m.PriceBar{
			Date:          e.Date(time.Unix(ts, 0).In(location)),
			AdjustedClose: adjCloses[i],
		}
		if i < len(closes) {
			bar.Close = closes[i]
		}
		byDate[bar.Date] = bar
	}

	res.Prices = make([]*m.PriceBar, 0, len(byDate))
	for _, bar := range byDate {
		res.Prices = append(res.Prices, bar)
	}
	slices.SortFunc(res.Prices, func(a, b *m.PriceBar) int { return a.Date.Compare(b.Date) })

	return res, nil
}

func exchangeLocation(meta chartMeta) *time.Location {
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", meta.GMTOffset)
}

func excerpt(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}
