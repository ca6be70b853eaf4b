package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/services/message/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMessageUseCase struct {
	mock.Mock
}

func (m *MockMessageUseCase) Send(ctx context.Context, from, to, content string) (*models.Message, error) {
	args := m.Called(from, to, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageUseCase) Retry(ctx context.Context, user, id string) (*models.Message, error) {
	args := m.Called(user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageUseCase) Conversation(ctx context.Context, user, peer string, limit int) ([]models.Message, error) {
	args := m.Called(user, peer, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageUseCase) Conversations(ctx context.Context, user string) ([]usecase.ConversationSummary, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.ConversationSummary), args.Error(1)
}

func (m *MockMessageUseCase) MarkRead(ctx context.Context, user, peer string) (int, error) {
	args := m.Called(user, peer)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageUseCase) UnreadCount(ctx context.Context, user string) (int, error) {
	args := m.Called(user)
	return args.Int(0), args.Error(1)
}

var _ usecase.MessageUseCase = (*MockMessageUseCase)(nil)

func setupMessageTestRouter(mockUseCase *MockMessageUseCase, user string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewMessageHandler(mockUseCase, logger.New())

	r := gin.New()
	if user != "" {
		r.Use(func(c *gin.Context) {
			c.Set("username", user)
		})
	}
	r.POST("/messages", handler.SendMessage)
	r.GET("/messages/conversations", handler.GetConversations)
	r.GET("/messages/unread", handler.GetUnreadCount)
	r.GET("/messages/with/:peer", handler.GetConversation)
	r.POST("/messages/with/:peer/read", handler.MarkConversationRead)
	r.POST("/messages/retry/:id", handler.RetryMessage)
	return r
}

func TestSendMessage_Unauthorized(t *testing.T) {
	router := setupMessageTestRouter(new(MockMessageUseCase), "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/messages", bytes.NewBufferString(`{"to":"bob","content":"hi"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessage_Created(t *testing.T) {
	mockUseCase := new(MockMessageUseCase)
	router := setupMessageTestRouter(mockUseCase, "alice")

	msg := models.NewMessage("alice", "bob", "hi")
	msg.Status = models.MessageSent
	mockUseCase.On("Send", "alice", "bob", "hi").Return(&msg, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/messages", bytes.NewBufferString(`{"to":"bob","content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response models.Message
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, msg.ID, response.ID)
	assert.Equal(t, models.MessageSent, response.Status)
	mockUseCase.AssertExpectations(t)
}

func TestSendMessage_MissingFields(t *testing.T) {
	router := setupMessageTestRouter(new(MockMessageUseCase), "alice")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/messages", bytes.NewBufferString(`{"to":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_UnknownRecipient(t *testing.T) {
	mockUseCase := new(MockMessageUseCase)
	router := setupMessageTestRouter(mockUseCase, "alice")

	mockUseCase.On("Send", "alice", "ghost", "hi").Return(nil, fmt.Errorf("recipient ghost: %w", apperr.ErrNotFound))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/messages", bytes.NewBufferString(`{"to":"ghost","content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetryMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not sender", apperr.ErrForbidden, http.StatusForbidden},
		{"not failed", apperr.ErrConflict, http.StatusConflict},
		{"missing", apperr.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUseCase := new(MockMessageUseCase)
			router := setupMessageTestRouter(mockUseCase, "alice")
			mockUseCase.On("Retry", "alice", "m-1").Return(nil, fmt.Errorf("retry: %w", tt.err))

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/messages/retry/m-1", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestGetConversation_ClampsLimit(t *testing.T) {
	mockUseCase := new(MockMessageUseCase)
	router := setupMessageTestRouter(mockUseCase, "alice")

	mockUseCase.On("Conversation", "alice", "bob", defaultConversationLimit).Return([]models.Message{models.NewMessage("bob", "alice", "yo")}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/messages/with/bob?limit=100000", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "bob", response["peer"])
	assert.Equal(t, float64(1), response["count"])
	mockUseCase.AssertExpectations(t)
}

func TestGetConversations(t *testing.T) {
	mockUseCase := new(MockMessageUseCase)
	router := setupMessageTestRouter(mockUseCase, "alice")

	mockUseCase.On("Conversations", "alice").Return([]usecase.ConversationSummary{
		{ID: "alice:bob", Peer: "bob", LastMessage: models.NewMessage("bob", "alice", "yo"), Unread: 1},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/messages/conversations", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(1), response["count"])
}

func TestMarkConversationReadAndUnread(t *testing.T) {
	mockUseCase := new(MockMessageUseCase)
	router := setupMessageTestRouter(mockUseCase, "alice")

	mockUseCase.On("MarkRead", "alice", "bob").Return(3, nil)
	mockUseCase.On("UnreadCount", "alice").Return(0, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/messages/with/bob/read", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":3`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/messages/unread", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":0}`, w.Body.String())

	mockUseCase.AssertExpectations(t)
}
