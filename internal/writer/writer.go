// Package writer delivers chunks of creation requests to the downstream
// ingestion endpoint, one POST per chunk.
package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
	"ContentIngestor/internal/retry"
)

const (
	// SuccessCode is the only top-level code treated as success.
	SuccessCode         = "2000"
	defaultAPIKeyHeader = "X-API-Key"
	defaultTimeout      = 30 * time.Second
)

// ErrChunkRejected marks a chunk the downstream refused as a whole.
var ErrChunkRejected = errors.New("chunk rejected by downstream")

// Config describes the downstream endpoint.
type Config struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"apiKey"`
	APIKeyHeader string        `yaml:"apiKeyHeader"`
	Timeout      time.Duration `yaml:"timeout"`
}

type envelope struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Data    domain.BatchWriteOutcome `json:"data"`
}

// HTTPBatchWriter implements ports.BatchWriter over HTTP.
type HTTPBatchWriter struct {
	endpoint string
	apiKey   string
	header   string
	client   *http.Client
	logger   *zap.Logger
}

var _ ports.BatchWriter = (*HTTPBatchWriter)(nil)

// NewHTTPBatchWriter builds a writer; client may be nil.
func NewHTTPBatchWriter(cfg Config, client *http.Client, logger *zap.Logger) *HTTPBatchWriter {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = defaultAPIKeyHeader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPBatchWriter{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		header:   header,
		client:   client,
		logger:   logger,
	}
}

// Write posts chunk and interprets the aggregate outcome. Transport failures,
// 5xx responses and a non-success top-level code are transient, so the retry
// policy bounds them before the chunk fails. A non-success code also carries
// ErrChunkRejected. 4xx responses and undecodable bodies are rejected without
// retry. Item-level failures inside a successful response are only logged.
func (w *HTTPBatchWriter) Write(ctx context.Context, chunk []domain.CanonicalCreateRequest) (domain.BatchWriteOutcome, error) {
	if len(chunk) == 0 {
		return domain.BatchWriteOutcome{}, nil
	}
	if w.endpoint == "" {
		return domain.BatchWriteOutcome{}, errors.New("downstream endpoint is not configured")
	}

	body, err := json.Marshal(chunk)
	if err != nil {
		return domain.BatchWriteOutcome{}, errors.Wrap(err, "marshal chunk")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.BatchWriteOutcome{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(w.header, w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.BatchWriteOutcome{}, retry.Transient(errors.Wrap(err, "post chunk"))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.BatchWriteOutcome{}, retry.Transient(errors.Wrap(err, "read response"))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.BatchWriteOutcome{}, retry.Transient(errors.Newf("downstream returned %s", resp.Status))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return domain.BatchWriteOutcome{}, errors.Mark(
			errors.Newf("downstream returned %s: %s", resp.Status, strings.TrimSpace(string(payload))),
			ErrChunkRejected)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return domain.BatchWriteOutcome{}, errors.Mark(errors.Wrap(err, "decode response"), ErrChunkRejected)
	}

	if env.Code != SuccessCode {
		return env.Data, retry.Transient(errors.Mark(
			errors.Newf("downstream code %s: %s", env.Code, env.Message),
			ErrChunkRejected))
	}

	outcome := env.Data
	if outcome.FailureCount > 0 {
		w.logger.Warn("partial batch failure",
			zap.Int("chunk_size", len(chunk)),
			zap.Int("failure", outcome.FailureCount),
			zap.Strings("messages", outcome.FailureMessages))
	} else {
		w.logger.Debug("chunk written", zap.Int("chunk_size", len(chunk)), zap.Int("success", outcome.SuccessCount))
	}

	return outcome, nil
}
