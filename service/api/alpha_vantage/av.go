package alpha_vantage

//go:generate mockgen -package=alpha_vantage_test -destination=mock_connection_test.go histdata/service/api Connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	e "histdata/data/extensions"
	m "histdata/data/models"
	c "histdata/service/api"
)

// public
const (
	HostDefault = "www.alphavantage.co"
	Provider    = "alpha vantage"
)

// private
const (
	// default query parameters
	defaultOutputSize = "full"
	defaultDataType   = "json"
	defaultTimeout    = time.Second * 30

	// api request elements
	query      = "query"
	apiKey     = "apikey"
	symbol     = "symbol"
	function   = "function"
	interval   = "interval"
	outputSize = "outputsize"
	dataType   = "datatype"

	// api response elements
	metaDataKey = "Meta Data"
	dataKey     = "data"
)

var (
	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	timeSeriesResultKeys = map[string]string{
		"Open":             ". open",
		"High":             ". high",
		"Low":              ". low",
		"Close":            ". close",
		"AdjustedClose":    ". adjusted close",
		"Volume":           ". volume",
		"DividendAmount":   ". dividend amount",
		"SplitCoefficient": ". split coefficient",
	}

	// keys alpha vantage puts in place of the data when it refuses a call
	errorPayloadKeys = []string{"Error Message", "Note", "Information"}
)

type AlphaVantageClient struct {
	*c.Client
}

func GetClient(apiKey string, opts ...c.ClientOption) *AlphaVantageClient {
	return NewClient(c.ClientFactory(HostDefault, apiKey, defaultTimeout, opts...))
}

func NewClient(client *c.Client) *AlphaVantageClient {
	return &AlphaVantageClient{client}
}

// StockTimeSeries returns the full history of ticker at the given frequency.
// https://www.alphavantage.co/documentation/#dailyadj
func (avc *AlphaVantageClient) StockTimeSeries(ctx context.Context, timeSeries TimeSeries, ticker string) (*m.TimeSeriesResult, error) {
	key := timeSeries.TimeSeriesKey()
	if key == "" {
		return nil, fmt.Errorf("error requesting %s: unknown time series %d", ticker, timeSeries)
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function:   timeSeries.Function(),
		symbol:     ticker,
		outputSize: defaultOutputSize,
	})

	label := fmt.Sprintf("%s %s", timeSeries.Function(), ticker)
	raw, err := avc.get(ctx, endpoint, label)
	if err != nil {
		return nil, err
	}

	if _, ok := raw[key]; !ok {
		return nil, responseError(raw, label, key)
	}

	metaData, timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, err
	}

	timeSeriesData, skipped, err := parseTimeSeriesDataResult(raw, key, timeZone, timeSeries.IsAdjusted())
	if err != nil {
		return nil, err
	}

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
		Skipped:    skipped,
	}, nil
}

// Commodity returns a commodity price series such as WTI or BRENT.
// https://www.alphavantage.co/documentation/#commodities
func (avc *AlphaVantageClient) Commodity(ctx context.Context, commodity DataFunction, timeInterval c.TimeInterval) (*m.DataSeriesResult, error) {
	if !commodity.IsCommodity() {
		return nil, fmt.Errorf("error requesting %s: not a commodity", commodity)
	}
	return avc.getDataSeries(ctx, commodity, timeInterval)
}

// EconomicIndicator returns a macro series such as CPI or FEDERAL_FUNDS_RATE.
// https://www.alphavantage.co/documentation/#economic-indicators
func (avc *AlphaVantageClient) EconomicIndicator(ctx context.Context, indicator DataFunction, timeInterval c.TimeInterval) (*m.DataSeriesResult, error) {
	if !indicator.IsIndicator() {
		return nil, fmt.Errorf("error requesting %s: not an economic indicator", indicator)
	}
	return avc.getDataSeries(ctx, indicator, timeInterval)
}

func (avc *AlphaVantageClient) getDataSeries(ctx context.Context, fn DataFunction, timeInterval c.TimeInterval) (*m.DataSeriesResult, error) {
	endpoint := avc.buildRequestPath(map[string]string{
		function: string(fn),
		interval: timeInterval.Interval(),
	})

	label := fmt.Sprintf("%s %s", fn, timeInterval.Interval())
	raw, err := avc.get(ctx, endpoint, label)
	if err != nil {
		return nil, err
	}

	if _, ok := raw[dataKey]; !ok {
		return nil, responseError(raw, label, dataKey)
	}

	var points []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw[dataKey], &points); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s data: %w", fn, err)
	}

	res := &m.DataSeriesResult{
		Name:     rawString(raw, "name"),
		Interval: rawString(raw, "interval"),
		Unit:     rawString(raw, "unit"),
		Data:     make([]*m.Observation, 0, len(points)),
	}
	for _, p := range points {
		date, err := parseDate(p.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s data: %w", fn, err)
		}

		value := parseFloat(p.Value)
		if !value.Valid {
			res.Skipped++
			continue
		}
		res.Data = append(res.Data, &m.Observation{Date: e.Date(date), Value: value})
	}

	slices.SortFunc(res.Data, func(a, b *m.Observation) int { return a.Date.Compare(b.Date) })
	return res, nil
}

// get issues the request and decodes the body into its top level keys.
func (avc *AlphaVantageClient) get(ctx context.Context, endpoint *url.URL, label string) (map[string]json.RawMessage, error) {
	if avc == nil || avc.Client == nil {
		return nil, fmt.Errorf("error requesting %s: alpha vantage client has not been set", label)
	}
	if avc.ApiKey() == "" {
		return nil, fmt.Errorf("error requesting %s: %w", label, c.ErrMissingAPIKey)
	}

	response, err := avc.Connection().Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", label, err)
	}
	defer response.Body.Close()

	if err := c.CheckStatus(Provider, response); err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", label, err)
	}

	raw, err := parseRawJson(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", label, err)
	}
	return raw, nil
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = "/" + query

	// base parameters
	query := endpoint.Query()
	query.Set(apiKey, avc.ApiKey())
	query.Set(dataType, defaultDataType)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func responseError(raw map[string]json.RawMessage, label, key string) error {
	res := &c.ResponseError{Provider: Provider, Query: label, Key: key}
	for _, k := range errorPayloadKeys {
		if msg := rawString(raw, k); msg != "" {
			res.Message = msg
			res.Throttled = k != "Error Message"
			break
		}
	}
	return res
}

func rawString(raw map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := raw[key]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return
}

func parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw[metaDataKey], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))
	find := func(suffix string) (string, bool) {
		key, err := e.FilterSingle(metaDataKeys, func(s string) bool { return e.HasSuffixFold(s, suffix) })
		return metadataElements[key], err == nil
	}

	sym, ok := find(". Symbol")
	if !ok {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	tz, ok := find(". Time Zone")
	if !ok {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(tz)
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", tz, err)
	}

	res := m.TimeSeriesMetadata{
		Symbol:   sym,
		TimeZone: tz,
	}

	if lr, ok := find(". Last Refreshed"); ok {
		if res.LastRefreshed, err = parseDate(lr, timeZone); err != nil {
			return nil, nil, fmt.Errorf("error parsing last refreshed date")
		}
	}
	if info, ok := find(". Information"); ok {
		res.Information = null.StringFrom(info)
	}
	if size, ok := find(". Output Size"); ok {
		res.OutputSize = null.StringFrom(size)
	}

	return &res, timeZone, nil
}

// parseTimeSeriesDataResult drops records whose price field is not numeric and reports how many.
func parseTimeSeriesDataResult(raw map[string]json.RawMessage, key string, location *time.Location, adjusted bool) ([]*m.TimeSeriesData, int, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[key], &timeSeriesElements); err != nil {
		return nil, 0, fmt.Errorf("error unmarshaling time series: %w", err)
	}

	if len(timeSeriesElements) == 0 {
		return []*m.TimeSeriesData{}, 0, nil
	}

	// populate the lookups
	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}

	lookup, err := getLookupKey(timeSeriesResultKeys, firstValue)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, 0, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		data, err := parseTimeSeriesData(timeSeriesValue, lookup)
		if err != nil {
			return nil, 0, fmt.Errorf("error parsing %s: %w", timeSeriesKey, err)
		}

		price := data.Close
		if adjusted {
			price = data.AdjustedClose
		}
		if !price.Valid {
			skipped++
			continue
		}

		data.Timestamp = timestamp
		timeSeries = append(timeSeries, &data)
	}

	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int { return a.Timestamp.Compare(b.Timestamp) })
	return timeSeries, skipped, nil
}

func parseTimeSeriesData(value, lookup map[string]string) (res m.TimeSeriesData, err error) {
	v := reflect.ValueOf(&res).Elem()
	for jsonKey, structAttribute := range lookup {
		field := v.FieldByName(structAttribute)
		if !field.IsValid() {
			return res, fmt.Errorf("field %s does not exist", structAttribute)
		}
		if !field.CanSet() {
			return res, fmt.Errorf("field %s cannot be set", structAttribute)
		}

		pv := parseFloat(value[jsonKey])
		field.Set(reflect.ValueOf(pv))
	}
	return
}

func getLookupKey(expectedKeys, values map[string]string) (map[string]string, error) {
	res := make(map[string]string)
	responseValueHeaders := slices.Collect(maps.Keys(values))

	for key, value := range expectedKeys {
		f := func(s string) bool { return e.HasSuffixFold(s, value) }
		if jsonKey, err := e.FilterSingle(responseValueHeaders, f); err == nil {
			res[jsonKey] = key
		}
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("error generating key value map from av response object. Available headers: %v", responseValueHeaders)
	}

	return res, nil
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	case "UTC", "":
		return time.UTC, nil
	default:
		loc = location
	}

	res, err := time.LoadLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

// parseFloat is null for anything that is not a finite number, including "." and "N/A".
func parseFloat(val string) null.Float {
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.NewFloat(0, false)
	}
	return null.FloatFrom(f)
}
