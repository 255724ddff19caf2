package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "histdata/data/extensions"
)

func Test_ClientHost_RequestRewritesHost(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("function")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	host := NewClientHost(srv.URL, time.Second, WithUserAgent("histdata-test"))
	endpoint := &url.URL{Path: "/query", RawQuery: "function=CPI"}

	res, err := host.Request(context.Background(), endpoint)
	require.NoError(t, err)
	defer res.Body.Close()

	ex.AssertAreEqual(t, "status", http.StatusOK, res.StatusCode)
	ex.AssertAreEqual(t, "path", "/query", gotPath)
	ex.AssertAreEqual(t, "function", "CPI", gotQuery)
	ex.AssertAreEqual(t, "user agent", "histdata-test", gotAgent)
	ex.AssertAreEqual(t, "scheme", "http", endpoint.Scheme)
}

func Test_NewClientHost_DefaultsToHttps(t *testing.T) {
	h := NewClientHost("www.alphavantage.co", time.Second)
	ex.AssertAreEqual(t, "scheme", "https", h.scheme)
	ex.AssertAreEqual(t, "host", "www.alphavantage.co", h.host)
	assert.Nil(t, h.limiter)
}

func Test_ClientHost_PausesBetweenRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	pause := 80 * time.Millisecond
	host := NewClientHost(srv.URL, time.Second, WithPause(pause))

	start := time.Now()
	for range 3 {
		res, err := host.Request(context.Background(), &url.URL{Path: "/"})
		require.NoError(t, err)
		res.Body.Close()
	}

	// first request is immediate, the next two wait one pause each
	assert.GreaterOrEqual(t, time.Since(start), 2*pause-10*time.Millisecond)
}

func Test_ClientHost_PauseHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	host := NewClientHost(srv.URL, time.Second, WithPause(time.Hour))
	res, err := host.Request(context.Background(), &url.URL{Path: "/"})
	require.NoError(t, err)
	res.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = host.Request(ctx, &url.URL{Path: "/"})
	require.Error(t, err)
}

func Test_CheckStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		rateLimited bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantErr: true},
		{name: "too many requests", status: http.StatusTooManyRequests, wantErr: true, rateLimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(tt.body))}
			err := CheckStatus("test", res)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			ex.AssertAreEqual(t, "status code", tt.status, se.StatusCode)
			ex.AssertAreEqual(t, "body", tt.body, se.Body)
			ex.AssertAreEqual(t, "rate limited", tt.rateLimited, errors.Is(err, ErrRateLimited))
		})
	}
}

func Test_ResponseError_IsRateLimited(t *testing.T) {
	throttled := &ResponseError{Provider: "alpha vantage", Query: "CPI", Message: "slow down", Throttled: true}
	assert.ErrorIs(t, throttled, ErrRateLimited)

	missing := &ResponseError{Provider: "alpha vantage", Query: "CPI", Key: "data", Message: "Invalid API call"}
	assert.NotErrorIs(t, missing, ErrRateLimited)
	assert.Contains(t, missing.Error(), `missing "data"`)
}
