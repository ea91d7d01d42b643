package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/chat"
	"workshop-chat-service/internal/middleware"
	"workshop-chat-service/internal/mocks"
	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/repositories"
)

const testAdminKey = "test-admin-key"

type roomsTestEnv struct {
	router    *gin.Engine
	verifier  *auth.Verifier
	roomRepo  *mocks.RoomRepositoryMock
	msgRepo   *mocks.MessageRepositoryMock
	directory *mocks.DirectoryRepositoryMock
}

func setupRoomsRouter(t *testing.T) *roomsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &roomsTestEnv{
		verifier:  auth.NewVerifier("test-secret"),
		roomRepo:  new(mocks.RoomRepositoryMock),
		msgRepo:   new(mocks.MessageRepositoryMock),
		directory: new(mocks.DirectoryRepositoryMock),
	}

	rooms := chat.NewRoomService(env.roomRepo, env.directory)
	messages := chat.NewMessageService(env.msgRepo)
	handler := NewRoomsHandler(rooms, messages, testAdminKey)

	router := gin.New()
	authMiddleware := middleware.Auth(env.verifier)
	router.GET("/rooms", authMiddleware, handler.ListRooms)
	router.GET("/rooms/:room_id/messages", authMiddleware, handler.GetMessages)
	router.POST("/rooms/:room_id/read", authMiddleware, handler.MarkRead)
	router.DELETE("/rooms/:room_id", authMiddleware, handler.DeleteRoom)
	env.router = router
	return env
}

func (env *roomsTestEnv) request(t *testing.T, method, path string, identity *auth.Identity, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if identity != nil {
		token, err := env.verifier.Sign(*identity, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestListRoomsForParent(t *testing.T) {
	env := setupRoomsRouter(t)
	env.roomRepo.On("IDsForParent", testifymock.Anything, 7).Return([]int{1, 3}, nil)

	rec := env.request(t, http.MethodGet, "/rooms", &auth.Identity{UserID: 7, Role: models.RoleParent}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RoomIDs []int `json:"room_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{1, 3}, body.RoomIDs)
}

func TestListRoomsEmptyIsAnArray(t *testing.T) {
	env := setupRoomsRouter(t)
	env.roomRepo.On("IDsForProvider", testifymock.Anything, 100).Return(nil, nil)

	rec := env.request(t, http.MethodGet, "/rooms", &auth.Identity{UserID: 100, Role: models.RoleProvider}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"room_ids":[]}`, rec.Body.String())
}

func TestListRoomsRequiresToken(t *testing.T) {
	env := setupRoomsRouter(t)
	rec := env.request(t, http.MethodGet, "/rooms", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMessagesReturnsWindow(t *testing.T) {
	env := setupRoomsRouter(t)
	room := models.Room{ID: 5, WorkshopID: 10, ParentID: 7}
	env.roomRepo.On("GetByID", testifymock.Anything, 5).Return(room, nil)
	env.directory.On("WorkshopProvider", testifymock.Anything, 10).Return(100, nil)

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	env.msgRepo.On("Page", testifymock.Anything, 5, 10, 20).Return([]models.Message{
		{ID: 2, RoomID: 5, SenderIsProvider: true, Text: "newer", CreatedAt: at.Add(time.Minute)},
		{ID: 1, RoomID: 5, SenderIsProvider: false, Text: "older", CreatedAt: at},
	}, nil)

	rec := env.request(t, http.MethodGet, "/rooms/5/messages?offset=10&limit=20",
		&auth.Identity{UserID: 7, Role: models.RoleParent}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "newer", body.Messages[0].Text)
	env.msgRepo.AssertExpectations(t)
}

func TestGetMessagesDefaultsPageBounds(t *testing.T) {
	env := setupRoomsRouter(t)
	room := models.Room{ID: 5, WorkshopID: 10, ParentID: 7}
	env.roomRepo.On("GetByID", testifymock.Anything, 5).Return(room, nil)
	env.directory.On("WorkshopProvider", testifymock.Anything, 10).Return(100, nil)
	env.msgRepo.On("Page", testifymock.Anything, 5, 0, chat.DefaultPageSize).Return([]models.Message{}, nil)

	rec := env.request(t, http.MethodGet, "/rooms/5/messages",
		&auth.Identity{UserID: 7, Role: models.RoleParent}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env.msgRepo.AssertExpectations(t)
}

func TestGetMessagesForbiddenForOutsider(t *testing.T) {
	env := setupRoomsRouter(t)
	room := models.Room{ID: 5, WorkshopID: 10, ParentID: 7}
	env.roomRepo.On("GetByID", testifymock.Anything, 5).Return(room, nil)
	env.directory.On("WorkshopProvider", testifymock.Anything, 10).Return(100, nil)

	rec := env.request(t, http.MethodGet, "/rooms/5/messages",
		&auth.Identity{UserID: 8, Role: models.RoleParent}, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env.msgRepo.AssertNotCalled(t, "Page")
}

func TestGetMessagesUnknownRoom(t *testing.T) {
	env := setupRoomsRouter(t)
	env.roomRepo.On("GetByID", testifymock.Anything, 404).Return(nil, repositories.ErrRoomNotFound)

	rec := env.request(t, http.MethodGet, "/rooms/404/messages",
		&auth.Identity{UserID: 7, Role: models.RoleParent}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMessagesRejectsBadRoomID(t *testing.T) {
	env := setupRoomsRouter(t)
	rec := env.request(t, http.MethodGet, "/rooms/not-a-number/messages",
		&auth.Identity{UserID: 7, Role: models.RoleParent}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadReportsCount(t *testing.T) {
	env := setupRoomsRouter(t)
	room := models.Room{ID: 5, WorkshopID: 10, ParentID: 7}
	env.roomRepo.On("GetByID", testifymock.Anything, 5).Return(room, nil)
	env.directory.On("WorkshopProvider", testifymock.Anything, 10).Return(100, nil)
	env.msgRepo.On("MarkRead", testifymock.Anything, 5, false, testifymock.Anything).Return(int64(4), nil)

	rec := env.request(t, http.MethodPost, "/rooms/5/read",
		&auth.Identity{UserID: 100, Role: models.RoleProvider}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":4}`, rec.Body.String())
}

func TestDeleteRoomRequiresAdminKey(t *testing.T) {
	env := setupRoomsRouter(t)

	rec := env.request(t, http.MethodDelete, "/rooms/5",
		&auth.Identity{UserID: 100, Role: models.RoleProvider}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodDelete, "/rooms/5",
		&auth.Identity{UserID: 100, Role: models.RoleProvider},
		map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.roomRepo.AssertNotCalled(t, "Delete")
}

func TestDeleteRoomWithAdminKey(t *testing.T) {
	env := setupRoomsRouter(t)
	env.roomRepo.On("Delete", testifymock.Anything, 5).Return(nil)

	rec := env.request(t, http.MethodDelete, "/rooms/5",
		&auth.Identity{UserID: 100, Role: models.RoleProvider},
		map[string]string{"X-Admin-Key": testAdminKey})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.roomRepo.AssertExpectations(t)
}

func TestDeleteRoomNotFound(t *testing.T) {
	env := setupRoomsRouter(t)
	env.roomRepo.On("Delete", testifymock.Anything, 5).Return(repositories.ErrRoomNotFound)

	rec := env.request(t, http.MethodDelete, "/rooms/5",
		&auth.Identity{UserID: 100, Role: models.RoleProvider},
		map[string]string{"X-Admin-Key": testAdminKey})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
