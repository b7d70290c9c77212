package partition

import (
	"context"
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

//go:generate mockery --name=Store
type Store interface {
	List(ctx context.Context) ([]Info, string, error)
	Get(ctx context.Context, name string) (Info, error)
}

type ListResponse struct {
	Partitions       []Info `json:"partitions"`
	DefaultPartition string `json:"defaultPartition"`
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	store         Store
}

func NewHandler(
	logger *zap.Logger,
	problemWriter *problem.HttpWriter,
	store Store,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("partition/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) ListPartitionsHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListPartitionsHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	partitions, defaultPartition, err := h.store.List(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ListResponse{
		Partitions:       partitions,
		DefaultPartition: defaultPartition,
	})
}

func (h *Handler) GetPartitionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetPartitionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	name := r.PathValue("partition")
	info, err := h.store.Get(traceCtx, name)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, info)
}
