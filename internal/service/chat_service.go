package service

import (
	"context"
	"fmt"
	"time"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
)

// ChatService provides chat room and message business logic.
type ChatService struct {
	chatRepo   repository.ChatRepository
	userRepo   repository.UserRepository
	dispatcher *notifications.Dispatcher
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, dispatcher *notifications.Dispatcher) *ChatService {
	return &ChatService{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// GetRoom returns a room with members and messages. Only members may view
// a room.
func (s *ChatService) GetRoom(ctx context.Context, userID, roomID uint) (*models.ChatRoom, error) {
	member, err := s.chatRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this chat room")
	}
	return s.chatRepo.GetByID(ctx, roomID)
}

// GetRooms returns the rooms the user belongs to, newest first.
func (s *ChatService) GetRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	return s.chatRepo.ListForMember(ctx, userID)
}

// SendMessage appends a message to the room and pushes it to the other
// members' devices. The push is transient: chat traffic never lands in the
// alert log.
func (s *ChatService) SendMessage(ctx context.Context, userID, roomID uint, body string) (*models.Message, error) {
	if body == "" {
		return nil, models.NewValidationError("Message cannot be empty")
	}

	member, err := s.chatRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this chat room")
	}

	msg := &models.Message{
		ChatRoomID: roomID,
		UserID:     userID,
		Body:       body,
	}
	if err := s.chatRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	room, err := s.chatRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sender, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	mid := msg.ID
	refs := &models.AlertRecord{
		UserID:     sender.ID,
		ChatRoomID: &roomID,
		MessageID:  &mid,
	}
	s.dispatcher.PushOnly(ctx, otherMemberTokens(room, userID),
		models.PushTypeMessage,
		fmt.Sprintf("%s: %s", sender.NickName, body),
		refs)

	return msg, nil
}

// OpenRoom flips the room available and tells the other members' devices.
// Like message pushes, the OPENED signal is transient.
func (s *ChatService) OpenRoom(ctx context.Context, userID, roomID uint) (*models.ChatRoom, error) {
	member, err := s.chatRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this chat room")
	}

	if err := s.chatRepo.SetAvailable(ctx, roomID, true, time.Now().Unix()); err != nil {
		return nil, err
	}

	room, err := s.chatRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	opener, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs := &models.AlertRecord{
		UserID:     opener.ID,
		ChatRoomID: &roomID,
	}
	s.dispatcher.PushOnly(ctx, otherMemberTokens(room, userID),
		models.PushTypeOpened,
		fmt.Sprintf("%s opened the chat room", opener.NickName),
		refs)

	return room, nil
}

// DeleteRoom removes a room the user is a member of, along with its
// messages and membership.
func (s *ChatService) DeleteRoom(ctx context.Context, userID, roomID uint) error {
	member, err := s.chatRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return models.NewForbiddenError("You are not a member of this chat room")
	}
	return s.chatRepo.Delete(ctx, roomID)
}

func otherMemberTokens(room *models.ChatRoom, exceptID uint) []string {
	tokens := make([]string, 0, len(room.Members))
	for _, m := range room.Members {
		if m.ID != exceptID {
			tokens = append(tokens, m.PushToken)
		}
	}
	return tokens
}
