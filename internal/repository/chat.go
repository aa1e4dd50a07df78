package repository

import (
	"context"
	"errors"

	"heartlink/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat room data operations
type ChatRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	GetByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	ListForMember(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	SetAvailable(ctx context.Context, roomID uint, available bool, availableAt int64) error
	Delete(ctx context.Context, roomID uint) error
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Members.Images").
		Preload("MembersHistory.Images").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("ChatRoom", id)
		}
		return nil, models.NewInternalError(err)
	}
	for i := range room.Members {
		room.Members[i].SplitImages()
	}
	for i := range room.MembersHistory {
		room.MembersHistory[i].SplitImages()
	}
	return &room, nil
}

func (r *chatRepository) ListForMember(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_room_members crm ON chat_rooms.id = crm.chat_room_id").
		Where("crm.user_id = ?", userID).
		Preload("Members.Images").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("chat_rooms.created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range rooms {
		for j := range rooms[i].Members {
			rooms[i].Members[j].SplitImages()
		}
	}
	return rooms, nil
}

func (r *chatRepository) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("chat_room_members").
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) SetAvailable(ctx context.Context, roomID uint, available bool, availableAt int64) error {
	err := r.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"available":    available,
			"available_at": availableAt,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the room along with its membership rows and messages; the
// cascade is explicit rather than delegated to database triggers.
func (r *chatRepository) Delete(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM chat_room_members WHERE chat_room_id = ?", roomID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_room_members_history WHERE chat_room_id = ?", roomID).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatRoom{}, roomID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
