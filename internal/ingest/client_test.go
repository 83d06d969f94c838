package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/sales-compare/internal/utils"
)

func TestFetchHandles500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetch(context.Background(), NewHTTPClient(2*time.Second), srv.URL)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusInternalServerError, serr.Code)
	assert.Contains(t, serr.Body, "internal error")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchWithRetry(context.Background(), NewHTTPClient(2*time.Second), srv.URL, utils.NewBackoff(time.Millisecond, 2), nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetry404(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FetchWithRetry(context.Background(), NewHTTPClient(2*time.Second), srv.URL, utils.NewBackoff(time.Millisecond, 3), nil)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchHandlesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	_, err := fetch(context.Background(), NewHTTPClient(500*time.Millisecond), srv.URL)
	require.Error(t, err)
}

func TestFetchEmptyURL(t *testing.T) {
	_, err := FetchWithRetry(context.Background(), NewHTTPClient(time.Second), "", utils.NewBackoff(time.Millisecond, 3), nil)
	assert.EqualError(t, err, "empty url")
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	b, err := FetchWithRetry(context.Background(), NewHTTPClient(time.Second), srv.URL, utils.NewBackoff(time.Millisecond, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	defer func(n int64) { maxBodyBytes = n }(maxBodyBytes)
	maxBodyBytes = 8

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("a,b\n1,2\n3,4\n"))
	}))
	defer srv.Close()

	_, err := FetchWithRetry(context.Background(), NewHTTPClient(time.Second), srv.URL, utils.NewBackoff(time.Millisecond, 3), nil)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Equal(t, int32(1), calls.Load())

	maxBodyBytes = 12
	b, err := fetch(context.Background(), NewHTTPClient(time.Second), srv.URL)
	require.NoError(t, err)
	assert.Len(t, b, 12)
}
