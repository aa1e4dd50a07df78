// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"math"

	"heartlink/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Nearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) ([]models.User, error)
	ReplaceImage(ctx context.Context, userID uint, stage string, index int, url string) (*models.UserImage, error)
	DeleteImage(ctx context.Context, userID uint, stage string, index int) error
	PromotePendingImages(ctx context.Context, userID uint) error
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Images").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	user.SplitImages()
	return &user, nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Images").Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", uid)
		}
		return nil, models.NewInternalError(err)
	}
	user.SplitImages()
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Preload("Images").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		users[i].SplitImages()
	}
	return users, nil
}

// Nearby returns users within radiusMeters of (lat, lng), ordered by most
// recent login. A coarse bounding box is applied in SQL and refined with
// the haversine distance afterwards, which keeps the query portable.
func (r *userRepository) Nearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) ([]models.User, error) {
	latDelta := radiusMeters / 111_000.0
	lngDelta := latDelta / math.Max(math.Cos(lat*math.Pi/180), 0.01)

	var candidates []models.User
	err := r.db.WithContext(ctx).
		Preload("Images").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("longitude BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta).
		Order("last_login_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	users := make([]models.User, 0, limit)
	for i := range candidates {
		if haversineMeters(lat, lng, *candidates[i].Latitude, *candidates[i].Longitude) > radiusMeters {
			continue
		}
		candidates[i].SplitImages()
		users = append(users, candidates[i])
		if len(users) == limit {
			break
		}
	}
	return users, nil
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6_371_000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ReplaceImage creates or overwrites the image slot at (stage, index).
func (r *userRepository) ReplaceImage(ctx context.Context, userID uint, stage string, index int, url string) (*models.UserImage, error) {
	var img models.UserImage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND stage = ? AND \"index\" = ?", userID, stage, index).
		First(&img).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		img = models.UserImage{UserID: userID, Stage: stage, Index: index, URL: url}
		if err := r.db.WithContext(ctx).Create(&img).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	case err != nil:
		return nil, models.NewInternalError(err)
	default:
		img.URL = url
		if err := r.db.WithContext(ctx).Save(&img).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &img, nil
}

func (r *userRepository) DeleteImage(ctx context.Context, userID uint, stage string, index int) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND stage = ? AND \"index\" = ?", userID, stage, index).
		Delete(&models.UserImage{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// PromotePendingImages replaces the approved image list with a copy of the
// pending one, as part of profile approval.
func (r *userRepository) PromotePendingImages(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND stage = ?", userID, models.ImageStageApproved).
			Delete(&models.UserImage{}).Error; err != nil {
			return err
		}

		var pending []models.UserImage
		if err := tx.Where("user_id = ? AND stage = ?", userID, models.ImageStagePending).
			Find(&pending).Error; err != nil {
			return err
		}

		for _, img := range pending {
			approved := models.UserImage{
				UserID: userID,
				Stage:  models.ImageStageApproved,
				Index:  img.Index,
				URL:    img.URL,
			}
			if err := tx.Create(&approved).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
