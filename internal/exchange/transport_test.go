package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTransport() *Transport {
	t := NewTransport(zap.NewNop())
	t.BackoffMin = 50 * time.Millisecond
	t.BackoffMax = time.Second
	return t
}

func getRequest(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestDoReturnsBodyOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, status, err := testTransport().Do(context.Background(), getRequest(server.URL))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestDoRetriesExactlyThreeTimesOnServerErrors(t *testing.T) {
	var attempts []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := testTransport().Do(context.Background(), getRequest(server.URL))
	require.Error(t, err)
	require.Len(t, attempts, 3)

	// backoff delays never decrease across attempts
	firstGap := attempts[1].Sub(attempts[0])
	secondGap := attempts[2].Sub(attempts[1])
	require.GreaterOrEqual(t, firstGap, 50*time.Millisecond)
	require.GreaterOrEqual(t, secondGap, firstGap)
}

func TestDoRecoversWithinRetryBudget(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, status, err := testTransport().Do(context.Background(), getRequest(server.URL))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "recovered", string(body))
	require.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown pair"}`))
	}))
	defer server.Close()

	body, status, err := testTransport().Do(context.Background(), getRequest(server.URL))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, string(body), "unknown pair")
	require.Equal(t, 1, attempts)
}

func TestDoStopsWhenContextExpires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	transport := testTransport()
	transport.BackoffMin = time.Second

	_, _, err := transport.Do(ctx, getRequest(server.URL))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
