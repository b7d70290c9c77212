package spawn

import (
	"context"
	"errors"
	"net/url"

	"hatchery-backend/internal"
	"hatchery-backend/internal/partition"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PartitionStore supplies reconciled partition records.
//
//go:generate mockery --name=PartitionStore
type PartitionStore interface {
	Get(ctx context.Context, name string) (partition.Info, error)
}

type Service struct {
	logger         *zap.Logger
	tracer         trace.Tracer
	validator      *validator.Validate
	partitionStore PartitionStore
	builder        *Builder
}

func NewService(logger *zap.Logger, validator *validator.Validate, partitionStore PartitionStore, builder *Builder) *Service {
	return &Service{
		logger:         logger,
		tracer:         otel.Tracer("spawn/service"),
		validator:      validator,
		partitionStore: partitionStore,
		builder:        builder,
	}
}

// Validate coerces and checks a raw spawn request, reporting every violation
// it can find. An unknown partition is itself a violation here rather than an
// error, so a form can show it inline like any other field problem.
func (s *Service) Validate(ctx context.Context, form url.Values) ([]internal.Violation, error) {
	traceCtx, span := s.tracer.Start(ctx, "ValidateSpawn")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	opts, err := OptionsFromForm(form)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	violations := SyntaxViolations(s.validator, opts)
	if opts.Partition == "" {
		return violations, nil
	}

	info, err := s.partitionStore.Get(traceCtx, opts.Partition)
	if err != nil {
		if errors.Is(err, internal.ErrPartitionNotFound) {
			violations = append(violations, internal.Violation{
				Field:   "partition",
				Message: "unknown partition " + opts.Partition,
			})
			return violations, nil
		}
		logger.Error("failed to resolve partition for validation", zap.String("partition", opts.Partition), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	return append(violations, LimitViolations(opts, info)...), nil
}

// Prepare validates a raw spawn request and builds its launch parameters.
// Requests with any violation are rejected with the full violation list.
func (s *Service) Prepare(ctx context.Context, form url.Values) (LaunchSpec, error) {
	traceCtx, span := s.tracer.Start(ctx, "PrepareSpawn")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	opts, err := OptionsFromForm(form)
	if err != nil {
		span.RecordError(err)
		return LaunchSpec{}, err
	}

	info, err := s.partitionStore.Get(traceCtx, opts.Partition)
	if err != nil {
		logger.Error("failed to resolve partition", zap.String("partition", opts.Partition), zap.Error(err))
		span.RecordError(err)
		return LaunchSpec{}, err
	}

	violations := Validate(s.validator, opts, info)
	if len(violations) > 0 {
		err := &internal.ValidationError{Violations: violations}
		span.RecordError(err)
		return LaunchSpec{}, err
	}

	spec, err := s.builder.Build(opts, info)
	if err != nil {
		logger.Error("failed to build launch parameters", zap.String("partition", opts.Partition), zap.Error(err))
		span.RecordError(err)
		return LaunchSpec{}, err
	}
	spec.RequestID = uuid.New().String()

	logger.Info("spawn request prepared",
		zap.String("request_id", spec.RequestID),
		zap.String("partition", spec.Partition),
		zap.Int("nprocs", spec.NProcs),
		zap.Int("ngpus", spec.NGPUs),
		zap.Bool("exclusive", spec.Exclusive))
	return spec, nil
}
