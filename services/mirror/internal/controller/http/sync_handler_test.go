package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/services/mirror/internal/entity"
	"blockconnect/services/mirror/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMirrorUseCase is a mock implementation of MirrorUseCase
type MockMirrorUseCase struct {
	mock.Mock
}

func (m *MockMirrorUseCase) Process(ctx context.Context, task mirror.Task) error {
	return m.Called(task).Error(0)
}

func (m *MockMirrorUseCase) Status(ctx context.Context, owner string) ([]*entity.SyncState, error) {
	args := m.Called(owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.SyncState), args.Error(1)
}

func (m *MockMirrorUseCase) Resync(ctx context.Context, owner string, kind mirror.Kind) error {
	return m.Called(owner, kind).Error(0)
}

var _ usecase.MirrorUseCase = (*MockMirrorUseCase)(nil)

func setupTestRouter(mockUseCase *MockMirrorUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(mockUseCase, logger.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "alice")
	})
	r.GET("/sync", handler.GetSyncStatus)
	r.POST("/sync/:kind", handler.Resync)
	return r
}

func TestGetSyncStatus(t *testing.T) {
	mockUseCase := new(MockMirrorUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("Status", "alice").Return([]*entity.SyncState{
		{Owner: "alice", Kind: "notifications", CID: "Qm1", Version: 3},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/sync", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User  string              `json:"user"`
		Lists []*entity.SyncState `json:"lists"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Lists, 1)
	assert.Equal(t, int64(3), resp.Lists[0].Version)
}

func TestResync(t *testing.T) {
	mockUseCase := new(MockMirrorUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("Resync", "alice", mirror.KindMessages).Return(nil)
	mockUseCase.On("Resync", "alice", mirror.Kind("likes")).Return(apperr.ErrInvalidInput)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/sync/messages", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/sync/likes", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertExpectations(t)
}
