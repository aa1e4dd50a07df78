package repository

import (
	"context"
	"errors"

	"heartlink/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines the interface for relationship request data operations
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	GetBetween(ctx context.Context, fromID, toID uint) (*models.Request, error)
	ListToUser(ctx context.Context, userID uint) ([]models.Request, error)
	ListFromUser(ctx context.Context, userID uint) ([]models.Request, error)
	SetResponse(ctx context.Context, id uint, response int, respondedAt int64) error
}

// requestRepository implements RequestRepository
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var request models.Request
	if err := r.db.WithContext(ctx).Preload("UserFrom").Preload("UserTo").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// GetBetween returns the edge with this exact direction, or nil when none
// exists.
func (r *requestRepository) GetBetween(ctx context.Context, fromID, toID uint) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Where("user_from_id = ? AND user_to_id = ?", fromID, toID).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *requestRepository) ListToUser(ctx context.Context, userID uint) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Preload("UserFrom").
		Preload("UserTo").
		Where("user_to_id = ?", userID).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListFromUser(ctx context.Context, userID uint) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Preload("UserFrom").
		Preload("UserTo").
		Where("user_from_id = ?", userID).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) SetResponse(ctx context.Context, id uint, response int, respondedAt int64) error {
	err := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"response":     response,
			"responded_at": respondedAt,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
