package spawn

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"hatchery-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

//go:generate mockery --name=Store
type Store interface {
	Validate(ctx context.Context, form url.Values) ([]internal.Violation, error)
	Prepare(ctx context.Context, form url.Values) (LaunchSpec, error)
}

type ValidationResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []internal.Violation `json:"violations"`
}

// ErrorResponse is the body of request-fault responses. Violations is set for
// validation failures so clients get the same shape as the validation
// endpoint.
type ErrorResponse struct {
	Message    string               `json:"message"`
	Violations []internal.Violation `json:"violations,omitempty"`
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
		tracer:        otel.Tracer("spawn/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

// ValidateSpawnHandler reports the violations of a spawn request without
// preparing anything. Responds 200 whether or not the request is valid; only
// transport or pipeline faults are errors.
func (h *Handler) ValidateSpawnHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ValidateSpawnHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	err := r.ParseForm()
	if err != nil {
		h.writeError(traceCtx, w, &internal.ParseError{Field: "body", Value: "", Reason: err.Error()}, logger)
		return
	}

	violations, err := h.store.Validate(traceCtx, r.Form)
	if err != nil {
		h.writeError(traceCtx, w, err, logger)
		return
	}
	if violations == nil {
		violations = []internal.Violation{}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// CreateSpawnHandler validates a spawn request and returns its launch
// parameters.
func (h *Handler) CreateSpawnHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateSpawnHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	err := r.ParseForm()
	if err != nil {
		h.writeError(traceCtx, w, &internal.ParseError{Field: "body", Value: "", Reason: err.Error()}, logger)
		return
	}

	spec, err := h.store.Prepare(traceCtx, r.Form)
	if err != nil {
		h.writeError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, spec)
}

// writeError renders request faults itself and defers everything else to the
// problem writer. Parse, validation and resource availability failures are the
// user's to fix, so they come back as 400 with field detail instead of a bare
// problem document.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, logger *zap.Logger) {
	var parseErr *internal.ParseError
	var validationErr *internal.ValidationError
	var unavailableErr *internal.ResourceUnavailableError

	switch {
	case errors.As(err, &validationErr):
		logger.Info("rejected spawn request", zap.Int("violations", len(validationErr.Violations)))
		handlerutil.WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Message:    "invalid spawn request",
			Violations: validationErr.Violations,
		})
	case errors.As(err, &parseErr):
		logger.Info("malformed spawn request", zap.String("field", parseErr.Field), zap.Error(err))
		handlerutil.WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Message: parseErr.Error(),
			Violations: []internal.Violation{
				{Field: parseErr.Field, Message: parseErr.Reason},
			},
		})
	case errors.As(err, &unavailableErr):
		logger.Info("rejected spawn request", zap.String("resource", unavailableErr.Resource))
		handlerutil.WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Message: unavailableErr.Error(),
		})
	default:
		h.problemWriter.WriteError(ctx, w, err, logger)
	}
}
