package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/services/post/internal/entity"
	"blockconnect/services/post/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostUseCase is a mock implementation of PostUseCase
type MockPostUseCase struct {
	mock.Mock
}

func (m *MockPostUseCase) CreatePost(ctx context.Context, authorAddress, author, text string, image []byte) (*entity.Post, error) {
	args := m.Called(authorAddress, author, text, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Post), args.Error(1)
}

func (m *MockPostUseCase) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Post), args.Error(1)
}

func (m *MockPostUseCase) PostsByUser(ctx context.Context, username string) ([]*entity.Post, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Post), args.Error(1)
}

func (m *MockPostUseCase) Feed(ctx context.Context, address, username string, limit, offset int) ([]*entity.Post, int, error) {
	args := m.Called(address, username, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entity.Post), args.Int(1), args.Error(2)
}

var _ usecase.PostUseCase = (*MockPostUseCase)(nil)

const testAddress = "0x1111111111111111111111111111111111111111"

func setupTestRouter(mockUseCase *MockPostUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewPostHandler(mockUseCase, logger.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", testAddress)
		c.Set("username", "alice")
	})
	r.GET("/feed", handler.GetFeed)
	r.POST("/posts", handler.CreatePost)
	r.GET("/posts/:id", handler.GetPost)
	r.GET("/users/:username/posts", handler.GetUserPosts)
	return r
}

func postForm(t *testing.T, text, filename string, image []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("content", text))
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		part.Write(image)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreatePost_WithImage(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("CreatePost", testAddress, "alice", "gm", []byte("png")).
		Return(&entity.Post{ID: "p-1", Author: "alice", Content: "gm", ImageCID: "sha256-img"}, nil)

	body, contentType := postForm(t, "gm", "cat.png", []byte("png"))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response entity.Post
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "p-1", response.ID)
	mockUseCase.AssertExpectations(t)
}

func TestCreatePost_InvalidImage(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	body, contentType := postForm(t, "gm", "virus.exe", []byte("MZ"))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePost_EmptyIsRejected(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("CreatePost", testAddress, "alice", "", []byte(nil)).
		Return(nil, fmt.Errorf("post needs text or an image: %w", apperr.ErrInvalidInput))

	body, contentType := postForm(t, "", "", nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPost(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("GetPost", "p-1").Return(&entity.Post{ID: "p-1", Likes: 3}, nil)
	mockUseCase.On("GetPost", "missing").Return(nil, fmt.Errorf("post missing: %w", apperr.ErrNotFound))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts/p-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"likes":3`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/posts/missing", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserPosts(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	mockUseCase.On("PostsByUser", "alice").Return([]*entity.Post{{ID: "p-2"}, {ID: "p-1"}}, nil)
	mockUseCase.On("PostsByUser", "bob").Return(nil, errors.New("rpc: connection refused"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/users/alice/posts", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/users/bob/posts", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetFeed(t *testing.T) {
	mockUseCase := new(MockPostUseCase)
	router := setupTestRouter(mockUseCase)

	posts := []*entity.Post{{ID: "p-2", Author: "bob", Content: "hello"}}
	mockUseCase.On("Feed", testAddress, "alice", 20, 0).Return(posts, 7, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/feed", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(7), resp["total"])
	mockUseCase.AssertExpectations(t)
}
