package job

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/metrics"
	"ContentIngestor/internal/ports"
	"ContentIngestor/internal/retry"
	"ContentIngestor/internal/writer"
)

// DefaultChunkSize is used when a step is configured without one.
const DefaultChunkSize = 10

// StepConfig holds the knobs shared by chunk steps.
type StepConfig struct {
	Name      string
	JobName   string
	ChunkSize int
	Retry     retry.Runner
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// ChunkStep reads pages, maps items, and writes fixed-size chunks. Chunk
// boundaries do not depend on page boundaries.
type ChunkStep[T any] struct {
	cfg       StepConfig
	reader    ports.PageReader[T]
	processor ports.ItemProcessor[T]
	writer    ports.BatchWriter
	logger    *zap.Logger
}

var _ Step = (*ChunkStep[struct{}])(nil)

// NewChunkStep wires a reader, a processor and a writer into a step.
func NewChunkStep[T any](
	cfg StepConfig,
	reader ports.PageReader[T],
	processor ports.ItemProcessor[T],
	writer ports.BatchWriter,
) *ChunkStep[T] {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Name == "" {
		cfg.Name = "ingest"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("job", cfg.JobName), zap.String("step", cfg.Name))

	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = func(attempt int, wait time.Duration, err error) {
			logger.Warn("transient failure, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}

	return &ChunkStep[T]{
		cfg:       cfg,
		reader:    reader,
		processor: processor,
		writer:    writer,
		logger:    logger,
	}
}

// Name returns the step name.
func (s *ChunkStep[T]) Name() string {
	return s.cfg.Name
}

// Run drives the reader until it reports no more pages, then flushes the
// remainder. A chunk the downstream rejects stops the step.
func (s *ChunkStep[T]) Run(ctx context.Context) (domain.StepReport, error) {
	report := domain.StepReport{Name: s.cfg.Name}

	if err := s.reader.Open(ctx); err != nil {
		return report, errors.Wrap(err, "open reader")
	}
	defer func() {
		if err := s.reader.Close(); err != nil {
			s.logger.Warn("close reader", zap.Error(err))
		}
	}()

	buffer := make([]domain.CanonicalCreateRequest, 0, s.cfg.ChunkSize)

	for {
		var (
			items []T
			more  bool
		)
		err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			var readErr error
			items, more, readErr = s.reader.NextPage(ctx)
			return readErr
		})
		if err != nil {
			return report, errors.Wrapf(err, "read page after %d items", report.Read)
		}

		skipped := 0
		for _, raw := range items {
			req, ok := s.processor.Process(ctx, raw)
			if !ok {
				skipped++
				continue
			}

			buffer = append(buffer, req)
			if len(buffer) < s.cfg.ChunkSize {
				continue
			}
			if err := s.flush(ctx, buffer, &report); err != nil {
				report.Read += len(items)
				report.Skipped += skipped
				return report, err
			}
			buffer = make([]domain.CanonicalCreateRequest, 0, s.cfg.ChunkSize)
		}

		report.Read += len(items)
		report.Skipped += skipped
		s.cfg.Metrics.ObservePage(s.cfg.JobName, s.cfg.Name, len(items), skipped)

		if !more {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "step cancelled")
		}
	}

	if len(buffer) > 0 {
		if err := s.flush(ctx, buffer, &report); err != nil {
			return report, err
		}
	}

	s.logger.Info("step finished",
		zap.Int("read", report.Read),
		zap.Int("skipped", report.Skipped),
		zap.Int("written", report.Written),
		zap.Int("failed", report.Failed),
		zap.Int("chunks", report.Chunks))

	return report, nil
}

func (s *ChunkStep[T]) flush(ctx context.Context, chunk []domain.CanonicalCreateRequest, report *domain.StepReport) error {
	var outcome domain.BatchWriteOutcome
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var writeErr error
		outcome, writeErr = s.writer.Write(ctx, chunk)
		return writeErr
	})
	if err != nil {
		result := metrics.ChunkError
		if errors.Is(err, writer.ErrChunkRejected) || !retry.IsTransient(err) {
			result = metrics.ChunkRejected
		}
		s.cfg.Metrics.ObserveChunk(s.cfg.JobName, s.cfg.Name, result, 0, 0)
		return errors.Wrapf(err, "write chunk %d (%d items)", report.Chunks+1, len(chunk))
	}

	report.Chunks++
	report.Written += outcome.SuccessCount
	report.Failed += outcome.FailureCount
	report.FailureMessages = append(report.FailureMessages, outcome.FailureMessages...)

	result := metrics.ChunkOK
	if outcome.FailureCount > 0 {
		result = metrics.ChunkPartial
	}
	s.cfg.Metrics.ObserveChunk(s.cfg.JobName, s.cfg.Name, result, outcome.SuccessCount, outcome.FailureCount)

	if !outcome.Consistent() {
		s.logger.Warn("inconsistent chunk outcome",
			zap.Int("chunk_size", len(chunk)),
			zap.Int("total", outcome.TotalCount),
			zap.Int("success", outcome.SuccessCount),
			zap.Int("failure", outcome.FailureCount))
	}
	return nil
}
