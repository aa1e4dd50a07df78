package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeSender records pushes instead of delivering them. failTokens lists
// tokens that should report delivery failure.
type fakeSender struct {
	mu         sync.Mutex
	sent       []map[string]string
	sentTokens []string
	failTokens map[string]bool
	sendErr    error
}

func (f *fakeSender) Send(_ context.Context, token string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	f.sentTokens = append(f.sentTokens, token)
	return nil
}

func (f *fakeSender) SendMulticast(_ context.Context, tokens []string, data map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var failed []string
	for _, token := range tokens {
		if f.failTokens[token] {
			failed = append(failed, token)
			continue
		}
		f.sent = append(f.sent, data)
		f.sentTokens = append(f.sentTokens, token)
	}
	return failed, nil
}

type serviceTestEnv struct {
	db         *gorm.DB
	users      repository.UserRepository
	requests   repository.RequestRepository
	posts      repository.PostRepository
	comments   repository.CommentRepository
	chats      repository.ChatRepository
	ratings    repository.RatingRepository
	alerts     repository.AlertRepository
	sender     *fakeSender
	dispatcher *notifications.Dispatcher
	requestSvc *RequestService
	postSvc    *PostService
	commentSvc *CommentService
	chatSvc    *ChatService
	alertSvc   *AlertService
}

func setupServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserImage{},
		&models.Request{},
		&models.ChatRoom{},
		&models.Message{},
		&models.Post{},
		&models.Favorite{},
		&models.Comment{},
		&models.CommentVote{},
		&models.StarRating{},
		&models.Alert{},
		&models.AlertRecord{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	env := &serviceTestEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		requests: repository.NewRequestRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		chats:    repository.NewChatRepository(db),
		ratings:  repository.NewRatingRepository(db),
		alerts:   repository.NewAlertRepository(db),
		sender:   &fakeSender{failTokens: make(map[string]bool)},
	}
	env.dispatcher = notifications.NewDispatcher(env.alerts, env.sender, slog.Default())
	env.requestSvc = NewRequestService(env.requests, env.users, env.chats, env.dispatcher)
	env.postSvc = NewPostService(env.posts, env.users, nil, env.dispatcher)
	env.commentSvc = NewCommentService(env.comments, env.posts, env.users, env.dispatcher)
	env.chatSvc = NewChatService(env.chats, env.users, env.dispatcher)
	env.alertSvc = NewAlertService(env.alerts, env.users)
	return env
}

func (env *serviceTestEnv) createUser(t *testing.T, uid string) *models.User {
	t.Helper()
	user := models.User{UID: uid, NickName: uid, PushToken: "token-" + uid}
	if err := env.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", uid, err)
	}
	return &user
}

func (env *serviceTestEnv) alertTypes(t *testing.T, ownerID uint) []string {
	t.Helper()
	records, err := env.alerts.ListRecords(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	types := make([]string, 0, len(records))
	for _, r := range records {
		types = append(types, r.Type)
	}
	return types
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != code {
		t.Fatalf("expected %s app error, got %#v", code, err)
	}
}

func TestSendRequestToSelf(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	alice := env.createUser(t, "alice")

	_, err := env.requestSvc.SendRequest(context.Background(), alice.ID, alice.ID, 1)
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestSendRequestCreatesPendingAndAlerts(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	request, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if !request.Pending() {
		t.Fatal("expected a pending request")
	}

	types := env.alertTypes(t, bob.ID)
	if len(types) != 1 || types[0] != models.PushTypeRequest {
		t.Fatalf("expected one REQUEST alert for bob, got %v", types)
	}
	if len(env.alertTypes(t, alice.ID)) != 0 {
		t.Fatal("the sender should not be alerted")
	}
}

func TestSendRequestDuplicateSameDirection(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	if _, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1); err != nil {
		t.Fatalf("send request: %v", err)
	}
	_, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	assertAppErrorCode(t, err, "DUPLICATE_REQUEST")
}

func TestReciprocalRequestCollapsesIntoMatch(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	first, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("alice's request: %v", err)
	}
	collapsed, err := env.requestSvc.SendRequest(ctx, bob.ID, alice.ID, 1)
	if err != nil {
		t.Fatalf("bob's reciprocal request: %v", err)
	}

	// The pair holds a single accepted row, alice -> bob.
	if collapsed.ID != first.ID {
		t.Fatalf("expected the original request to be accepted in place, got row %d", collapsed.ID)
	}
	if !collapsed.Accepted() {
		t.Fatal("expected the request to be accepted")
	}
	var requestCount int64
	env.db.Model(&models.Request{}).Count(&requestCount)
	if requestCount != 1 {
		t.Fatalf("expected a single request row, got %d", requestCount)
	}

	var roomCount int64
	env.db.Model(&models.ChatRoom{}).Count(&roomCount)
	if roomCount != 1 {
		t.Fatalf("expected exactly one chat room, got %d", roomCount)
	}

	// MATCHED goes to the original requester, with the acceptor as actor.
	records, err := env.alerts.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list alice records: %v", err)
	}
	if len(records) != 1 || records[0].Type != models.PushTypeMatched {
		t.Fatalf("expected one MATCHED alert for alice, got %v", records)
	}
	if records[0].UserID != bob.ID {
		t.Fatalf("expected bob as the acting user, got %d", records[0].UserID)
	}
}

func TestRespondForbiddenForNonAddressee(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	request, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	_, err = env.requestSvc.Respond(ctx, carol.ID, request.ID, models.RequestAccepted)
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestRespondAcceptedOpensRoom(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	request, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	accepted, err := env.requestSvc.Respond(ctx, bob.ID, request.ID, models.RequestAccepted)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !accepted.Accepted() {
		t.Fatal("expected an accepted request")
	}

	rooms, err := env.chats.ListForMember(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected one room for alice, got %d", len(rooms))
	}

	types := env.alertTypes(t, alice.ID)
	if len(types) != 1 || types[0] != models.PushTypeMatched {
		t.Fatalf("expected MATCHED alert for alice, got %v", types)
	}
}

func TestRespondDeclinedStaysQuiet(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	request, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	declined, err := env.requestSvc.Respond(ctx, bob.ID, request.ID, models.RequestDeclined)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if declined.Pending() || declined.Accepted() {
		t.Fatal("expected a declined request")
	}

	var roomCount int64
	env.db.Model(&models.ChatRoom{}).Count(&roomCount)
	if roomCount != 0 {
		t.Fatalf("a decline must not open a room, got %d", roomCount)
	}
	if len(env.alertTypes(t, alice.ID)) != 0 {
		t.Fatal("a decline must not alert the requester")
	}
}

func TestSendRequestAfterResolutionIsDuplicate(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	request, err := env.requestSvc.SendRequest(ctx, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := env.requestSvc.Respond(ctx, bob.ID, request.ID, models.RequestDeclined); err != nil {
		t.Fatalf("respond: %v", err)
	}

	// The declined edge blocks a new request in the reverse direction too.
	_, err = env.requestSvc.SendRequest(ctx, bob.ID, alice.ID, 1)
	assertAppErrorCode(t, err, "DUPLICATE_REQUEST")
}
