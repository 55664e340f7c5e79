package writer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/retry"
)

func chunkOf(n int) []domain.CanonicalCreateRequest {
	out := make([]domain.CanonicalCreateRequest, n)
	for i := range out {
		out[i] = domain.CanonicalCreateRequest{Title: "t", URL: "https://x", ExternalID: "feed:" + string(rune('a'+i))}
	}
	return out
}

func respond(w http.ResponseWriter, code string, outcome domain.BatchWriteOutcome) {
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": "msg", "data": outcome})
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var got []domain.CanonicalCreateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(w, SuccessCode, domain.BatchWriteOutcome{TotalCount: len(got), SuccessCount: len(got)})
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL, APIKey: "secret"}, server.Client(), nil)
	outcome, err := w.Write(context.Background(), chunkOf(3))
	require.NoError(t, err)
	assert.Equal(t, domain.BatchWriteOutcome{TotalCount: 3, SuccessCount: 3}, outcome)
	assert.True(t, outcome.Consistent())
}

func TestWritePartialFailureIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, SuccessCode, domain.BatchWriteOutcome{TotalCount: 3, SuccessCount: 2, FailureCount: 1, FailureMessages: []string{"duplicate title"}})
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	outcome, err := w.Write(context.Background(), chunkOf(3))
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.FailureCount)
	assert.Equal(t, []string{"duplicate title"}, outcome.FailureMessages)
}

func TestWriteNonSuccessCodeIsRetryableRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, "5001", domain.BatchWriteOutcome{TotalCount: 3, SuccessCount: 3})
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	_, err := w.Write(context.Background(), chunkOf(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChunkRejected))
	assert.True(t, retry.IsTransient(err))
}

func TestWriteNonSuccessCodeExhaustsRetryPolicy(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(w, "5000", domain.BatchWriteOutcome{})
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	runner := retry.Runner{
		Policy: retry.Policy{InitialInterval: time.Millisecond, MaxAttempts: 3},
		Sleep:  func(context.Context, time.Duration) error { return nil },
	}

	err := runner.Do(context.Background(), func(ctx context.Context) error {
		_, err := w.Write(ctx, chunkOf(2))
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChunkRejected))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWriteUndecodableBodyIsNotRetried(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	_, err := w.Write(context.Background(), chunkOf(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChunkRejected))
	assert.False(t, retry.IsTransient(err))
}

func TestWriteServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	_, err := w.Write(context.Background(), chunkOf(1))
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
}

func TestWriteClientErrorIsFatal(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	_, err := w.Write(context.Background(), chunkOf(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChunkRejected))
	assert.False(t, retry.IsTransient(err))
}

func TestWriteEmptyChunkIsNoop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: server.URL}, server.Client(), nil)
	outcome, err := w.Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, outcome.TotalCount)
	assert.Zero(t, calls.Load())
}

func TestWriteTransportErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	w := NewHTTPBatchWriter(Config{Endpoint: endpoint}, nil, nil)
	_, err := w.Write(context.Background(), chunkOf(1))
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
}
