package slurm

import (
	"context"
	"strings"
	"time"

	"hatchery-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Cache stores raw status text between fetches. Parsed structures are cheap to
// rebuild, so only the command output is cached and the parser always runs.
//
//go:generate mockery --name=Cache
type Cache interface {
	GetStatusText(ctx context.Context, key string) (string, error)
	SetStatusText(ctx context.Context, key string, text string) error
	DeleteStatusText(ctx context.Context, key string) error
}

type Service struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	runner  Runner
	parser  *Parser
	cache   Cache
	command []string
	timeout time.Duration
}

// NewService wires the status pipeline. cache may be nil, in which case every
// fetch runs the command.
func NewService(logger *zap.Logger, runner Runner, parser *Parser, cache Cache, command []string, timeout time.Duration) *Service {
	return &Service{
		logger:  logger,
		tracer:  otel.Tracer("slurm/service"),
		runner:  runner,
		parser:  parser,
		cache:   cache,
		command: command,
		timeout: timeout,
	}
}

func (s *Service) cacheKey() string {
	return "status:" + strings.Join(s.command, " ")
}

// FetchPartitions returns the aggregated per-partition records. The raw text
// comes from the cache when one is wired and warm, otherwise from a fresh run
// of the status command bounded by the configured timeout. Runner and parser
// failures are both scheduler faults; no partial map is ever returned.
func (s *Service) FetchPartitions(ctx context.Context) (map[string]PartitionStatus, error) {
	traceCtx, span := s.tracer.Start(ctx, "FetchPartitions")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	text, hit := s.cachedText(traceCtx, logger)
	if !hit {
		runCtx, cancel := context.WithTimeout(traceCtx, s.timeout)
		defer cancel()

		var err error
		text, err = s.runner.Run(runCtx, s.command)
		if err != nil {
			logger.Error("failed to run status command", zap.Strings("command", s.command), zap.Error(err))
			span.RecordError(err)
			return nil, &internal.SchedulerError{Err: err}
		}

		if s.cache != nil {
			err = s.cache.SetStatusText(traceCtx, s.cacheKey(), text)
			if err != nil {
				logger.Warn("failed to cache status text", zap.Error(err))
				span.RecordError(err)
			}
		}
	}

	partitions, err := s.parser.Parse(text)
	if err != nil {
		logger.Error("failed to parse status output", zap.Error(err))
		span.RecordError(err)
		return nil, &internal.SchedulerError{Err: err}
	}

	logger.Debug("fetched partition status", zap.Int("partitions", len(partitions)), zap.Bool("cached", hit))
	return partitions, nil
}

func (s *Service) cachedText(ctx context.Context, logger *zap.Logger) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, err := s.cache.GetStatusText(ctx, s.cacheKey())
	if err != nil {
		logger.Debug("status cache miss", zap.Error(err))
		return "", false
	}
	return text, true
}

// InvalidateCache drops the cached status text so the next fetch runs the
// command again. A no-op without a cache.
func (s *Service) InvalidateCache(ctx context.Context) error {
	traceCtx, span := s.tracer.Start(ctx, "InvalidateCache")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if s.cache == nil {
		return nil
	}
	err := s.cache.DeleteStatusText(traceCtx, s.cacheKey())
	if err != nil {
		logger.Error("failed to invalidate status cache", zap.Error(err))
		span.RecordError(err)
		return err
	}
	logger.Info("status cache invalidated")
	return nil
}

// Ping checks that the scheduler status command is reachable at all, without
// going through the cache.
func (s *Service) Ping(ctx context.Context) error {
	traceCtx, span := s.tracer.Start(ctx, "Ping")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	runCtx, cancel := context.WithTimeout(traceCtx, s.timeout)
	defer cancel()

	_, err := s.runner.Run(runCtx, []string{s.command[0], "--version"})
	if err != nil {
		logger.Warn("scheduler status command unreachable", zap.Error(err))
		span.RecordError(err)
		return &internal.SchedulerError{Err: err}
	}
	return nil
}
