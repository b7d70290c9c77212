package redis

import (
	"context"
	"errors"
	"time"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Service struct {
	logger *zap.Logger
	tracer trace.Tracer
	client *redis.Client
	ttl    time.Duration
}

// NewService connects to redis at the given address. Entries written through
// SetStatusText expire after ttl, which bounds how stale a cached scheduler
// snapshot can get even if nobody invalidates it.
func NewService(logger *zap.Logger, redisURL string, ttl time.Duration) *Service {
	return &Service{
		logger: logger,
		tracer: otel.Tracer("redis/service"),
		client: redis.NewClient(&redis.Options{
			Addr: redisURL,
		}),
		ttl: ttl,
	}
}

func (s *Service) GetStatusText(ctx context.Context, key string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetStatusText")
	defer span.End()

	text, err := s.client.Get(traceCtx, key).Result()
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *Service) SetStatusText(ctx context.Context, key string, text string) error {
	traceCtx, span := s.tracer.Start(ctx, "SetStatusText")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	err := s.client.Set(traceCtx, key, text, s.ttl).Err()
	if err != nil {
		span.RecordError(err)
		return err
	}
	logger.Debug("cached status text", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *Service) DeleteStatusText(ctx context.Context, key string) error {
	traceCtx, span := s.tracer.Start(ctx, "DeleteStatusText")
	defer span.End()

	err := s.client.Del(traceCtx, key).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return err
	}
	return nil
}
