package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrRateLimited   = errors.New("provider rate limit reached")
	ErrMissingAPIKey = errors.New("missing api key")
)

// StatusError is a non-2xx response without a recognizable error payload.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s http %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ResponseError is a well formed response that does not carry the expected data.
type ResponseError struct {
	Provider string
	Query    string
	Key      string
	Message  string
	// Throttled is set when the provider says the call was refused for quota reasons.
	Throttled bool
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s: response missing %q: %s", e.Provider, e.Query, e.Key, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Query, msg)
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrRateLimited && e.Throttled
}

// CheckStatus turns a non-2xx response into a *StatusError, keeping a short body excerpt.
func CheckStatus(provider string, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	se := &StatusError{Provider: provider, StatusCode: res.StatusCode, Body: string(excerpt)}
	if res.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrRateLimited, se)
	}
	return se
}
