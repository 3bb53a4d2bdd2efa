package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"syncroom-service/internal/assistant"
	"syncroom-service/internal/models"
	"syncroom-service/internal/repositories"
)

type MembershipRepositoryMock struct {
	mock.Mock
}

func (m *MembershipRepositoryMock) RoleOf(ctx context.Context, roomID int, userID int) (models.Role, error) {
	args := m.Called(ctx, roomID, userID)
	var role models.Role
	if val := args.Get(0); val != nil {
		role = val.(models.Role)
	}
	return role, args.Error(1)
}

func (m *MembershipRepositoryMock) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MembershipRepositoryMock) GetMember(ctx context.Context, roomID int, userID int) (models.Member, error) {
	args := m.Called(ctx, roomID, userID)
	var member models.Member
	if val := args.Get(0); val != nil {
		member = val.(models.Member)
	}
	return member, args.Error(1)
}

func (m *MembershipRepositoryMock) ListMembers(ctx context.Context, roomID int) ([]models.Member, error) {
	args := m.Called(ctx, roomID)
	var list []models.Member
	if val := args.Get(0); val != nil {
		list = val.([]models.Member)
	}
	return list, args.Error(1)
}

func (m *MembershipRepositoryMock) UpdateRole(ctx context.Context, roomID int, userID int, role models.Role) error {
	args := m.Called(ctx, roomID, userID, role)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) RemoveMember(ctx context.Context, roomID int, userID int) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) DeleteRoom(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListForRoom(ctx context.Context, roomID int) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Upsert(ctx context.Context, messageID int, userID int, emoji string) error {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Error(0)
}

func (m *ReactionRepositoryMock) ListForRoom(ctx context.Context, roomID int) ([]models.Reaction, error) {
	args := m.Called(ctx, roomID)
	var list []models.Reaction
	if val := args.Get(0); val != nil {
		list = val.([]models.Reaction)
	}
	return list, args.Error(1)
}

type AssistantHistoryRepositoryMock struct {
	mock.Mock
}

func (m *AssistantHistoryRepositoryMock) Append(ctx context.Context, userID int, sender models.AssistantSender, body string) error {
	args := m.Called(ctx, userID, sender, body)
	return args.Error(0)
}

func (m *AssistantHistoryRepositoryMock) LastTurns(ctx context.Context, userID int, limit int) ([]models.AssistantTurn, error) {
	args := m.Called(ctx, userID, limit)
	var list []models.AssistantTurn
	if val := args.Get(0); val != nil {
		list = val.([]models.AssistantTurn)
	}
	return list, args.Error(1)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) Get(ctx context.Context, fileID int) (models.File, error) {
	args := m.Called(ctx, fileID)
	var file models.File
	if val := args.Get(0); val != nil {
		file = val.(models.File)
	}
	return file, args.Error(1)
}

func (m *FileRepositoryMock) Delete(ctx context.Context, fileID int) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

func (m *FileRepositoryMock) ListForRoom(ctx context.Context, roomID int) ([]models.File, error) {
	args := m.Called(ctx, roomID)
	var list []models.File
	if val := args.Get(0); val != nil {
		list = val.([]models.File)
	}
	return list, args.Error(1)
}

type CompleterMock struct {
	mock.Mock
}

func (m *CompleterMock) Complete(ctx context.Context, prompt string, history []assistant.Turn) (string, error) {
	args := m.Called(ctx, prompt, history)
	return args.String(0), args.Error(1)
}

var (
	_ repositories.MembershipRepository       = (*MembershipRepositoryMock)(nil)
	_ repositories.MessageRepository          = (*MessageRepositoryMock)(nil)
	_ repositories.ReactionRepository         = (*ReactionRepositoryMock)(nil)
	_ repositories.AssistantHistoryRepository = (*AssistantHistoryRepositoryMock)(nil)
	_ repositories.FileRepository             = (*FileRepositoryMock)(nil)
	_ assistant.Completer                     = (*CompleterMock)(nil)
)
