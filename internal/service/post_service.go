package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
	"heartlink/internal/storage"
)

// PostService provides feed post business logic.
type PostService struct {
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	uploader   storage.Uploader
	images     *ImageService
	dispatcher *notifications.Dispatcher
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, uploader storage.Uploader, dispatcher *notifications.Dispatcher) *PostService {
	return &PostService{
		postRepo:   postRepo,
		userRepo:   userRepo,
		uploader:   uploader,
		images:     NewImageService(),
		dispatcher: dispatcher,
	}
}

// CreatePost creates a new feed post for the author.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, title, description, url string, enableComment bool) (*models.Post, error) {
	if description == "" && url == "" {
		return nil, models.NewValidationError("Post needs a description or a URL")
	}

	post := &models.Post{
		AuthorID:      authorID,
		Title:         title,
		Description:   description,
		URL:           url,
		EnableComment: enableComment,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// CreatePostWithImage normalizes and uploads the attached image first,
// then creates the post with the stored URL.
func (s *PostService) CreatePostWithImage(ctx context.Context, authorID uint, title, description string, enableComment bool, image io.Reader) (*models.Post, error) {
	if s.uploader == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	encoded, err := s.images.Normalize(image)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.Upload(ctx, "post_images", storage.ObjectName(author.UID, 0)+".webp", bytes.NewReader(encoded))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.CreatePost(ctx, authorID, title, description, url, enableComment)
}

// GetPost returns a single post with comments and favorites.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// GetPosts returns a page of the feed, newest first.
func (s *PostService) GetPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.postRepo.List(ctx, limit, offset)
}

// GetPostsByAuthor returns a user's own posts, newest first.
func (s *PostService) GetPostsByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, authorID)
}

// DeletePost removes the post. Only the author may delete it; comments,
// votes and favorites go with it.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

// AddFavorite adds the post to the user's favorites. The alert to the
// author fires only when this actually added something; favoriting twice
// neither duplicates the favorite nor the alert. Favoriting your own post
// still alerts the author, that is, yourself.
func (s *PostService) AddFavorite(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	added, err := s.postRepo.AddFavorite(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if added {
		author, err := s.userRepo.GetByID(ctx, post.AuthorID)
		if err != nil {
			return nil, err
		}
		actor, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		pid := post.ID
		record := &models.AlertRecord{
			Type:   models.PushTypeFavorite,
			UserID: actor.ID,
			PostID: &pid,
			Body:   fmt.Sprintf("%s favorited your post", actor.NickName),
		}
		if err := s.dispatcher.NotifyAndPush(ctx, author, record); err != nil {
			return nil, err
		}
	}

	return s.postRepo.GetByID(ctx, postID)
}

// RemoveFavorite drops the post from the user's favorites. Removing a
// favorite that is not there is a no-op.
func (s *PostService) RemoveFavorite(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.RemoveFavorite(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID)
}

// GetFavoritePosts returns the posts the user has favorited, most recently
// favorited first.
func (s *PostService) GetFavoritePosts(ctx context.Context, userID uint) ([]models.Post, error) {
	return s.postRepo.ListFavoritePosts(ctx, userID)
}

// GetFavoriteUsers returns the users who favorited the post. Only the
// author may see the list.
func (s *PostService) GetFavoriteUsers(ctx context.Context, userID, postID uint) ([]models.User, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("Only the author can see who favorited a post")
	}
	return s.postRepo.ListFavoriteUsers(ctx, postID)
}
