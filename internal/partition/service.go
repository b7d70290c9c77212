package partition

import (
	"context"
	"fmt"

	"hatchery-backend/internal"
	"hatchery-backend/internal/slurm"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SlurmStore supplies the live per-partition scheduler records.
//
//go:generate mockery --name=SlurmStore
type SlurmStore interface {
	FetchPartitions(ctx context.Context) (map[string]slurm.PartitionStatus, error)
}

type Service struct {
	logger     *zap.Logger
	tracer     trace.Tracer
	catalogue  Catalogue
	slurmStore SlurmStore
}

func NewService(logger *zap.Logger, catalogue Catalogue, slurmStore SlurmStore) *Service {
	return &Service{
		logger:     logger,
		tracer:     otel.Tracer("partition/service"),
		catalogue:  catalogue,
		slurmStore: slurmStore,
	}
}

// List returns the reconciled records for every catalogue entry, in catalogue
// order, together with the default partition name. A catalogue entry the
// scheduler does not report is a hard failure for the whole listing; serving
// the remaining partitions would hide a broken deployment.
func (s *Service) List(ctx context.Context) ([]Info, string, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListPartitions")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	defaultName, err := s.catalogue.DefaultPartition()
	if err != nil {
		logger.Error("no default partition available", zap.Error(err))
		span.RecordError(err)
		return nil, "", err
	}

	live, err := s.slurmStore.FetchPartitions(traceCtx)
	if err != nil {
		logger.Error("failed to fetch partition status", zap.Error(err))
		span.RecordError(err)
		return nil, "", err
	}

	infos := make([]Info, 0, len(s.catalogue.Partitions))
	for _, cfg := range s.catalogue.Partitions {
		info, err := s.reconcile(cfg, live)
		if err != nil {
			logger.Error("failed to reconcile partition", zap.String("partition", cfg.Name), zap.Error(err))
			span.RecordError(err)
			return nil, "", err
		}
		infos = append(infos, info)
	}

	logger.Debug("reconciled partitions", zap.Int("count", len(infos)), zap.String("default", defaultName))
	return infos, defaultName, nil
}

// Get returns the reconciled record for one catalogue entry.
func (s *Service) Get(ctx context.Context, name string) (Info, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetPartition")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	cfg, ok := s.catalogue.Get(name)
	if !ok {
		return Info{}, internal.ErrPartitionNotFound
	}

	live, err := s.slurmStore.FetchPartitions(traceCtx)
	if err != nil {
		logger.Error("failed to fetch partition status", zap.Error(err))
		span.RecordError(err)
		return Info{}, err
	}

	info, err := s.reconcile(cfg, live)
	if err != nil {
		logger.Error("failed to reconcile partition", zap.String("partition", name), zap.Error(err))
		span.RecordError(err)
		return Info{}, err
	}
	return info, nil
}

// reconcile overlays the catalogue entry on the live record. Overrides win
// over live values whenever present, including overrides that loosen a limit.
func (s *Service) reconcile(cfg Config, live map[string]slurm.PartitionStatus) (Info, error) {
	status, ok := live[cfg.Name]
	if !ok {
		return Info{}, &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q is not reported by the scheduler", cfg.Name),
		}
	}

	resources := status.Resources
	o := cfg.Overrides
	if o.GPUTemplate != nil {
		resources.GPUTemplate = *o.GPUTemplate
	}
	if o.MaxGPUs != nil {
		resources.MaxGPUs = *o.MaxGPUs
	}
	if o.MaxCoresPerNode != nil {
		resources.MaxCoresPerNode = *o.MaxCoresPerNode
	}
	if o.MaxRuntimeSeconds != nil {
		resources.MaxRuntimeSeconds = *o.MaxRuntimeSeconds
	}
	if resources.GPUTemplate == "" {
		resources.MaxGPUs = 0
	}

	err := checkComplete(cfg.Name, resources)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Name:          cfg.Name,
		Resources:     resources,
		DisplayCounts: status.DisplayCounts,
		Architecture:  cfg.Architecture,
		Description:   cfg.Description,
		Simple:        cfg.Simple,
		Environments:  cfg.Environments,
	}, nil
}

// checkComplete rejects a record that would let requests through unchecked.
// Zero limits mean the scheduler output and the catalogue together still do
// not describe the partition, which must surface instead of validating
// against nothing.
func checkComplete(name string, r slurm.Resources) error {
	missing := ""
	switch {
	case r.MaxCoresPerNode <= 0:
		missing = "max cores per node"
	case r.MaxMemoryMB <= 0:
		missing = "memory limit"
	case r.MaxRuntimeSeconds <= 0:
		missing = "runtime limit"
	}
	if missing != "" {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q has no usable %s from either the scheduler or the catalogue", name, missing),
		}
	}
	return nil
}
