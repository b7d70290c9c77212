package system

import (
	"context"
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.uber.org/zap"
)

// Store is the slice of the status pipeline the system endpoints need.
//
//go:generate mockery --name=Store
type Store interface {
	Ping(ctx context.Context) error
	InvalidateCache(ctx context.Context) error
}

// BuildInfo is stamped in at link time by the release pipeline.
type BuildInfo struct {
	AppName    string `json:"appName"`
	Version    string `json:"version"`
	BuildTime  string `json:"buildTime"`
	CommitHash string `json:"commitHash"`
}

type Handler struct {
	logger        *zap.Logger
	store         Store
	buildInfo     BuildInfo
	problemWriter *problem.HttpWriter
}

func NewHandler(logger *zap.Logger, store Store, buildInfo BuildInfo, problemWriter *problem.HttpWriter) *Handler {
	return &Handler{
		logger:        logger,
		store:         store,
		buildInfo:     buildInfo,
		problemWriter: problemWriter,
	}
}

type SystemInfoResponse struct {
	BuildInfo
	SchedulerReachable bool `json:"schedulerReachable"`
}

func (h *Handler) GetSystemInfoHandler(w http.ResponseWriter, r *http.Request) {
	err := h.store.Ping(r.Context())
	if err != nil {
		h.logger.Warn("scheduler unreachable", zap.Error(err))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SystemInfoResponse{
		BuildInfo:          h.buildInfo,
		SchedulerReachable: err == nil,
	})
}

// InvalidateCacheHandler drops the cached scheduler snapshot so the next
// partition listing reflects the cluster as it is now.
func (h *Handler) InvalidateCacheHandler(w http.ResponseWriter, r *http.Request) {
	err := h.store.InvalidateCache(r.Context())
	if err != nil {
		h.problemWriter.WriteError(r.Context(), w, err, h.logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, nil)
}
