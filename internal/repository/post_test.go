package repository

import (
	"context"
	"testing"

	"heartlink/internal/models"
)

func TestAddFavoriteReportsFirstInsert(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")

	post := &models.Post{AuthorID: author.ID, Description: "hello"}
	if err := repo.Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	added, err := repo.AddFavorite(ctx, post.ID, fan.ID)
	if err != nil {
		t.Fatalf("first AddFavorite: %v", err)
	}
	if !added {
		t.Fatal("expected first favorite to report an insert")
	}

	added, err = repo.AddFavorite(ctx, post.ID, fan.ID)
	if err != nil {
		t.Fatalf("second AddFavorite: %v", err)
	}
	if added {
		t.Fatal("expected repeated favorite to be a no-op")
	}

	ids, err := repo.ListFavoriteUserIDs(ctx, post.ID)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(ids) != 1 || ids[0] != fan.ID {
		t.Fatalf("expected exactly [%d], got %v", fan.ID, ids)
	}
}

func TestRemoveFavoriteMissingIsNoop(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")

	post := &models.Post{AuthorID: author.ID, Description: "hello"}
	if err := repo.Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := repo.RemoveFavorite(ctx, post.ID, fan.ID); err != nil {
		t.Fatalf("removing an absent favorite should not fail: %v", err)
	}
}

func TestDeletePostCascades(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	postRepo := NewPostRepository(db)
	commentRepo := NewCommentRepository(db)
	ctx := context.Background()
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")

	post := &models.Post{AuthorID: author.ID, Description: "hello"}
	if err := postRepo.Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment := &models.Comment{PostID: post.ID, UserID: fan.ID, Body: "nice"}
	if err := commentRepo.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := commentRepo.SetVote(ctx, comment.ID, author.ID, models.VoteUp); err != nil {
		t.Fatalf("set vote: %v", err)
	}
	if _, err := postRepo.AddFavorite(ctx, post.ID, fan.ID); err != nil {
		t.Fatalf("add favorite: %v", err)
	}

	if err := postRepo.Delete(ctx, post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	var comments, votes, favorites int64
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	db.Model(&models.CommentVote{}).Count(&votes)
	db.Model(&models.Favorite{}).Where("post_id = ?", post.ID).Count(&favorites)
	if comments != 0 || votes != 0 || favorites != 0 {
		t.Fatalf("expected full cascade, got comments=%d votes=%d favorites=%d", comments, votes, favorites)
	}
}
