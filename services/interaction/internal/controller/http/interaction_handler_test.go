package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/services/interaction/internal/entity"
	"blockconnect/services/interaction/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInteractionUseCase is a mock implementation of InteractionUseCase
type MockInteractionUseCase struct {
	mock.Mock
}

func (m *MockInteractionUseCase) Like(ctx context.Context, address, username, postID string) (*entity.LikeState, error) {
	args := m.Called(address, username, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LikeState), args.Error(1)
}

func (m *MockInteractionUseCase) Likes(ctx context.Context, postID string) ([]string, error) {
	args := m.Called(postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInteractionUseCase) IsLiked(ctx context.Context, username, postID string) (bool, error) {
	args := m.Called(username, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInteractionUseCase) LikedPosts(ctx context.Context, username string) ([]string, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInteractionUseCase) AddComment(ctx context.Context, username, postID, text string) (*entity.Comment, error) {
	args := m.Called(username, postID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Comment), args.Error(1)
}

func (m *MockInteractionUseCase) Comments(ctx context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error) {
	args := m.Called(postID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entity.Comment), args.Get(1).(int64), args.Error(2)
}

var _ usecase.InteractionUseCase = (*MockInteractionUseCase)(nil)

const testAddress = "0x2222222222222222222222222222222222222222"

func setupTestRouter(mockUseCase *MockInteractionUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewInteractionHandler(mockUseCase, logger.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", testAddress)
		c.Set("username", "bob")
	})
	r.POST("/posts/:post_id/like", handler.LikePost)
	r.GET("/posts/:post_id/likes", handler.GetLikes)
	r.GET("/posts/:post_id/liked", handler.IsLiked)
	r.GET("/likes", handler.GetLikedPosts)
	r.POST("/posts/:post_id/comments", handler.CreateComment)
	r.GET("/posts/:post_id/comments", handler.GetComments)
	return r
}

func TestLikePost(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("Like", testAddress, "bob", "p-1").Return(&entity.LikeState{PostID: "p-1", Liked: true, Likes: 4}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/p-1/like", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var state entity.LikeState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state.Liked)
	assert.Equal(t, 4, state.Likes)
	mockUseCase.AssertExpectations(t)
}

func TestLikePost_NotFound(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("Like", testAddress, "bob", "nope").Return(nil, apperr.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/nope/like", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLikes(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("Likes", "p-1").Return([]string{"alice", "bob"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts/p-1/likes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["count"])
}

func TestIsLikedAndLikedPosts(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("IsLiked", "bob", "p-1").Return(true, nil)
	mockUseCase.On("LikedPosts", "bob").Return([]string{"p-1"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts/p-1/liked", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"liked":true`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/likes", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	mockUseCase.AssertExpectations(t)
}

func TestCreateComment(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("AddComment", "bob", "p-1", "nice").Return(&entity.Comment{ID: "c-1", PostID: "p-1", Author: "bob", Content: "nice"}, nil)

	body, _ := json.Marshal(CreateCommentRequest{Content: "nice"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/p-1/comments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestCreateComment_Invalid(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/p-1/comments", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockUseCase.On("AddComment", "bob", "p-1", "   ").Return(nil, apperr.ErrInvalidInput)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/posts/p-1/comments", bytes.NewBufferString(`{"content":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetComments(t *testing.T) {
	mockUseCase := new(MockInteractionUseCase)
	router := setupTestRouter(mockUseCase)

	comments := []*entity.Comment{{ID: "c-1", PostID: "p-1", Author: "bob", Content: "nice"}}
	mockUseCase.On("Comments", "p-1", 10, 20).Return(comments, int64(21), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts/p-1/comments?limit=10&offset=20", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(21), resp["total"])
	mockUseCase.AssertExpectations(t)
}
