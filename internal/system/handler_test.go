package system_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hatchery-backend/internal"
	"hatchery-backend/internal/system"
	"hatchery-backend/internal/system/mocks"

	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var testBuildInfo = system.BuildInfo{
	AppName:    "hatchery-backend",
	Version:    "test",
	BuildTime:  "2025-01-01T00:00:00Z",
	CommitHash: "deadbeef",
}

func TestHandler_GetSystemInfoHandler(t *testing.T) {
	testCases := []struct {
		name              string
		setupMock         func(store *mocks.Store)
		expectedReachable bool
	}{
		{
			name: "Should report a reachable scheduler",
			setupMock: func(store *mocks.Store) {
				store.On("Ping", mock.Anything).Return(nil)
			},
			expectedReachable: true,
		},
		{
			name: "Should report an unreachable scheduler without failing",
			setupMock: func(store *mocks.Store) {
				store.On("Ping", mock.Anything).Return(&internal.SchedulerError{Err: assert.AnError})
			},
			expectedReachable: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := zap.NewDevelopment()
			if err != nil {
				t.Fatalf("failed to create logger: %v", err)
			}
			store := mocks.NewStore(t)
			tc.setupMock(store)
			h := system.NewHandler(logger, store, testBuildInfo, problem.NewWithMapping(internal.ErrorHandler))

			r := httptest.NewRequest(http.MethodGet, "/api/system/info", nil)
			w := httptest.NewRecorder()
			h.GetSystemInfoHandler(w, r)

			assert.Equal(t, http.StatusOK, w.Code, tc.name)

			var response system.SystemInfoResponse
			err = json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedReachable, response.SchedulerReachable)
			assert.Equal(t, "hatchery-backend", response.AppName)
			assert.Equal(t, "test", response.Version)
		})
	}
}

func TestHandler_InvalidateCacheHandler(t *testing.T) {
	testCases := []struct {
		name           string
		setupMock      func(store *mocks.Store)
		expectedStatus int
	}{
		{
			name: "Should invalidate the scheduler cache",
			setupMock: func(store *mocks.Store) {
				store.On("InvalidateCache", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Should return error when the cache cannot be invalidated",
			setupMock: func(store *mocks.Store) {
				store.On("InvalidateCache", mock.Anything).Return(assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := zap.NewDevelopment()
			if err != nil {
				t.Fatalf("failed to create logger: %v", err)
			}
			store := mocks.NewStore(t)
			tc.setupMock(store)
			h := system.NewHandler(logger, store, testBuildInfo, problem.NewWithMapping(internal.ErrorHandler))

			r := httptest.NewRequest(http.MethodDelete, "/api/system/cache", nil)
			w := httptest.NewRecorder()
			h.InvalidateCacheHandler(w, r)

			assert.Equal(t, tc.expectedStatus, w.Code, tc.name)
		})
	}
}
