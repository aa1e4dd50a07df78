package repository

import (
	"context"

	"heartlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingRepository defines the interface for star rating data operations
type RatingRepository interface {
	Upsert(ctx context.Context, rating *models.StarRating) (bool, error)
	ListByFrom(ctx context.Context, fromID uint) ([]models.StarRating, error)
	GetPair(ctx context.Context, fromID, toID uint) (*models.StarRating, error)
	ListHighRaters(ctx context.Context, toID uint, minScore int) ([]models.User, error)
}

// ratingRepository implements RatingRepository
type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert stores the rating. The latest score per (from, to) pair wins. The
// returned bool reports whether this was the pair's first rating, which is
// what gates the alert to the rated user.
func (r *ratingRepository) Upsert(ctx context.Context, rating *models.StarRating) (bool, error) {
	var existing int64
	err := r.db.WithContext(ctx).Model(&models.StarRating{}).
		Where("user_from_id = ? AND user_to_id = ?", rating.UserFromID, rating.UserToID).
		Count(&existing).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_from_id"}, {Name: "user_to_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "rated_at"}),
		}).
		Create(rating).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return existing == 0, nil
}

func (r *ratingRepository) ListByFrom(ctx context.Context, fromID uint) ([]models.StarRating, error) {
	var ratings []models.StarRating
	err := r.db.WithContext(ctx).
		Where("user_from_id = ?", fromID).
		Order("rated_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}

// ListHighRaters returns the users who rated the target at or above
// minScore, most recent rating first.
func (r *ratingRepository) ListHighRaters(ctx context.Context, toID uint, minScore int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN star_ratings sr ON sr.user_from_id = users.id").
		Where("sr.user_to_id = ? AND sr.score >= ?", toID, minScore).
		Order("sr.rated_at DESC").
		Preload("Images").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		users[i].SplitImages()
	}
	return users, nil
}

func (r *ratingRepository) GetPair(ctx context.Context, fromID, toID uint) (*models.StarRating, error) {
	var rating models.StarRating
	err := r.db.WithContext(ctx).
		Where("user_from_id = ? AND user_to_id = ?", fromID, toID).
		First(&rating).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rating, nil
}
