package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"workshop-chat-service/internal/broadcast"
	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetOrCreate(ctx context.Context, workshopID int, parentID int) (models.Room, bool, error) {
	args := m.Called(ctx, workshopID, parentID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) GetByID(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) IDsForParent(ctx context.Context, parentID int) ([]int, error) {
	args := m.Called(ctx, parentID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *RoomRepositoryMock) IDsForProvider(ctx context.Context, providerID int) ([]int, error) {
	args := m.Called(ctx, providerID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *RoomRepositoryMock) Delete(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, roomID int, senderIsProvider bool, text string, createdAt time.Time) (models.Message, error) {
	args := m.Called(ctx, roomID, senderIsProvider, text, createdAt)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Page(ctx context.Context, roomID int, offset int, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, offset, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, roomID int, senderIsProvider bool, readAt time.Time) (int64, error) {
	args := m.Called(ctx, roomID, senderIsProvider, readAt)
	return args.Get(0).(int64), args.Error(1)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

func (m *DirectoryRepositoryMock) WorkshopProvider(ctx context.Context, workshopID int) (int, error) {
	args := m.Called(ctx, workshopID)
	return args.Int(0), args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) SendToConnection(ctx context.Context, connID string, method string, payload any) error {
	args := m.Called(ctx, connID, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToConnections(ctx context.Context, connIDs []string, method string, payload any) error {
	args := m.Called(ctx, connIDs, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToGroup(ctx context.Context, groupID int, method string, payload any) error {
	args := m.Called(ctx, groupID, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToGroups(ctx context.Context, groupIDs []int, method string, payload any) error {
	args := m.Called(ctx, groupIDs, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToGroupExcept(ctx context.Context, groupID int, excludedConnIDs []string, method string, payload any) error {
	args := m.Called(ctx, groupID, excludedConnIDs, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToUser(ctx context.Context, userID int, method string, payload any) error {
	args := m.Called(ctx, userID, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) SendToUsers(ctx context.Context, userIDs []int, method string, payload any) error {
	args := m.Called(ctx, userIDs, method, payload)
	return args.Error(0)
}

func (m *BroadcasterMock) Subscribe(ctx context.Context, groupID int, conn broadcast.Connection) error {
	args := m.Called(ctx, groupID, conn)
	return args.Error(0)
}

func (m *BroadcasterMock) Unsubscribe(ctx context.Context, groupID int, conn broadcast.Connection) error {
	args := m.Called(ctx, groupID, conn)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	args := m.Called(ctx, routingKey, message, headers)
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.DirectoryRepository = (*DirectoryRepositoryMock)(nil)
var _ broadcast.Broadcaster = (*BroadcasterMock)(nil)
