package service

import (
	"context"
	"testing"

	"heartlink/internal/models"
)

func TestCreateCommentOnDisabledPost(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	other := env.createUser(t, "other")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "no comments please", "", false)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	_, err = env.commentSvc.CreateComment(ctx, other.ID, post.ID, nil, "hi")
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestThumbUpByPostAuthorAlertsEveryTime(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	commenter := env.createUser(t, "commenter")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "hello", "", true)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment, err := env.commentSvc.CreateComment(ctx, commenter.ID, post.ID, nil, "nice one")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if _, err := env.commentSvc.ThumbUp(ctx, author.ID, comment.ID); err != nil {
		t.Fatalf("first thumb up: %v", err)
	}
	if _, err := env.commentSvc.ThumbUp(ctx, author.ID, comment.ID); err != nil {
		t.Fatalf("second thumb up: %v", err)
	}

	types := env.alertTypes(t, commenter.ID)
	if len(types) != 2 {
		t.Fatalf("expected an alert per thumb up, got %v", types)
	}
	for _, typ := range types {
		if typ != models.PushTypeThumbUp {
			t.Fatalf("expected THUMB_UP alerts, got %v", types)
		}
	}
}

func TestThumbUpOwnCommentByAuthorAlertsSelf(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "hello", "", true)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment, err := env.commentSvc.CreateComment(ctx, author.ID, post.ID, nil, "self reply")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if _, err := env.commentSvc.ThumbUp(ctx, author.ID, comment.ID); err != nil {
		t.Fatalf("thumb up: %v", err)
	}

	types := env.alertTypes(t, author.ID)
	if len(types) != 1 || types[0] != models.PushTypeThumbUp {
		t.Fatalf("expected a THUMB_UP alert for the author's own vote, got %v", types)
	}
}

func TestThumbUpByBystanderStaysSilent(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	commenter := env.createUser(t, "commenter")
	bystander := env.createUser(t, "bystander")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "hello", "", true)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment, err := env.commentSvc.CreateComment(ctx, commenter.ID, post.ID, nil, "nice one")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if _, err := env.commentSvc.ThumbUp(ctx, bystander.ID, comment.ID); err != nil {
		t.Fatalf("thumb up: %v", err)
	}
	if len(env.alertTypes(t, commenter.ID)) != 0 {
		t.Fatal("a bystander's thumb up must not alert the commenter")
	}
}

func TestThumbUpPullsThumbDown(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	voter := env.createUser(t, "voter")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "hello", "", true)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	comment, err := env.commentSvc.CreateComment(ctx, author.ID, post.ID, nil, "self reply")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if _, err := env.commentSvc.ThumbDown(ctx, voter.ID, comment.ID); err != nil {
		t.Fatalf("thumb down: %v", err)
	}
	voted, err := env.commentSvc.ThumbUp(ctx, voter.ID, comment.ID)
	if err != nil {
		t.Fatalf("thumb up: %v", err)
	}

	if len(voted.ThumbUpUserIDs) != 1 || voted.ThumbUpUserIDs[0] != voter.ID {
		t.Fatalf("expected voter in thumb-up set, got %v", voted.ThumbUpUserIDs)
	}
	if len(voted.ThumbDownUserIDs) != 0 {
		t.Fatalf("thumb up must pull the thumb down, got %v", voted.ThumbDownUserIDs)
	}
}

func TestSubCommentNestingDepthLimit(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")

	post, err := env.postSvc.CreatePost(ctx, author.ID, "", "hello", "", true)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	top, err := env.commentSvc.CreateComment(ctx, author.ID, post.ID, nil, "top")
	if err != nil {
		t.Fatalf("create top comment: %v", err)
	}
	sub, err := env.commentSvc.CreateComment(ctx, author.ID, post.ID, &top.ID, "sub")
	if err != nil {
		t.Fatalf("create sub comment: %v", err)
	}

	_, err = env.commentSvc.CreateComment(ctx, author.ID, post.ID, &sub.ID, "too deep")
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}
