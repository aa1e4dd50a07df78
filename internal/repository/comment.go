package repository

import (
	"context"
	"errors"

	"heartlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	Delete(ctx context.Context, id uint) error
	SetVote(ctx context.Context, commentID, userID uint, value int) error
	RemoveVote(ctx context.Context, commentID, userID uint) error
}

// commentRepository implements CommentRepository
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("User.Images").
		Preload("SubComments.User.Images").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	if err := r.attachVotes(ctx, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Preload("User.Images").
		Preload("SubComments.User.Images").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range comments {
		if err := r.attachVotes(ctx, &comments[i]); err != nil {
			return nil, err
		}
		for j := range comments[i].SubComments {
			if err := r.attachVotes(ctx, &comments[i].SubComments[j]); err != nil {
				return nil, err
			}
		}
	}
	return comments, nil
}

func (r *commentRepository) attachVotes(ctx context.Context, comment *models.Comment) error {
	var votes []models.CommentVote
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", comment.ID).
		Find(&votes).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	comment.SplitVotes(votes)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM comment_votes WHERE comment_id = ? OR comment_id IN (SELECT id FROM comments WHERE parent_id = ?)", id, id,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetVote records the user's vote on the comment. A single row per
// (comment, user) pair makes the up/down directions mutually exclusive:
// voting up after voting down overwrites the earlier direction.
func (r *commentRepository) SetVote(ctx context.Context, commentID, userID uint, value int) error {
	vote := models.CommentVote{CommentID: commentID, UserID: userID, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&vote).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) RemoveVote(ctx context.Context, commentID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentVote{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
