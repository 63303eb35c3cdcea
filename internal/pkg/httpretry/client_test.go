package httpretry

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDoer returns canned responses/errors in order and counts every
// invocation. The last step repeats if called again.
type scriptedDoer struct {
	calls int
	steps []func() (*http.Response, error)
}

func (s *scriptedDoer) Do(_ *http.Request) (*http.Response, error) {
	idx := s.calls
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.calls++
	return s.steps[idx]()
}

func response(code int) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return &http.Response{
			StatusCode: code,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	}
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://example.com/userinfo", nil)
	require.NoError(t, err)
	return req
}

func fastClient(inner Doer, retries int) *Client {
	c := New(inner, retries)
	c.baseDelay = 0
	c.maxDelay = 0
	return c
}

func TestRetriesTransientStatus(t *testing.T) {
	doer := &scriptedDoer{steps: []func() (*http.Response, error){
		response(http.StatusServiceUnavailable),
		response(http.StatusOK),
	}}
	c := fastClient(doer, 3)

	resp, err := c.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, doer.calls)
}

func TestClientErrorNotRetried(t *testing.T) {
	doer := &scriptedDoer{steps: []func() (*http.Response, error){
		response(http.StatusUnauthorized),
		response(http.StatusOK),
	}}
	c := fastClient(doer, 3)

	resp, err := c.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, doer.calls)
}

func TestFinalAttemptReturnsResponse(t *testing.T) {
	doer := &scriptedDoer{steps: []func() (*http.Response, error){
		response(http.StatusBadGateway),
	}}
	c := fastClient(doer, 2)

	resp, err := c.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCanceledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := newRequest(t).WithContext(ctx)

	doer := &scriptedDoer{steps: []func() (*http.Response, error){
		response(http.StatusOK),
	}}
	c := fastClient(doer, 3)

	_, err := c.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
}
