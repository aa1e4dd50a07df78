package service

import (
	"context"
	"fmt"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
)

// CommentService provides comment and vote business logic.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	dispatcher  *notifications.Dispatcher
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	dispatcher *notifications.Dispatcher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
	}
}

// CreateComment adds a comment to a post, optionally nested one level under
// a parent comment.
func (s *CommentService) CreateComment(ctx context.Context, userID, postID uint, parentID *uint, body string) (*models.Comment, error) {
	if body == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.EnableComment {
		return nil, models.NewForbiddenError("Comments are disabled on this post")
	}

	if parentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		if parent.ParentID != nil {
			return nil, models.NewValidationError("Comments nest only one level deep")
		}
	}

	comment := &models.Comment{
		PostID:   postID,
		ParentID: parentID,
		UserID:   userID,
		Body:     body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// GetComments returns a post's top-level comments with their sub-comments
// and vote sets.
func (s *CommentService) GetComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

// DeleteComment removes the comment and its sub-comments. Only its author
// may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// ThumbUp records the user's up vote on the comment, replacing any down
// vote. When the voter is the post's author, the comment's author is
// alerted; the alert fires on every such call, repeats included.
func (s *CommentService) ThumbUp(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.SetVote(ctx, commentID, userID, models.VoteUp); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, comment.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID == userID {
		commenter, err := s.userRepo.GetByID(ctx, comment.UserID)
		if err != nil {
			return nil, err
		}
		actor, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		pid := post.ID
		cid := comment.ID
		record := &models.AlertRecord{
			Type:      models.PushTypeThumbUp,
			UserID:    actor.ID,
			PostID:    &pid,
			CommentID: &cid,
			Body:      fmt.Sprintf("%s liked your comment", actor.NickName),
		}
		if err := s.dispatcher.NotifyAndPush(ctx, commenter, record); err != nil {
			return nil, err
		}
	}

	return s.commentRepo.GetByID(ctx, commentID)
}

// ThumbDown records the user's down vote on the comment, replacing any up
// vote. Down votes never alert anyone.
func (s *CommentService) ThumbDown(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		return nil, err
	}
	if err := s.commentRepo.SetVote(ctx, commentID, userID, models.VoteDown); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID)
}

// RemoveVote withdraws the user's vote on the comment, whichever direction
// it was.
func (s *CommentService) RemoveVote(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		return nil, err
	}
	if err := s.commentRepo.RemoveVote(ctx, commentID, userID); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID)
}
