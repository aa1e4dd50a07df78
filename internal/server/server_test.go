package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"heartlink/internal/config"
	"heartlink/internal/database"
	"heartlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// headerVerifier accepts tokens of the form "valid:<uid>" and rejects
// everything else, standing in for the real identity provider.
type headerVerifier struct{}

func (headerVerifier) Verify(_ context.Context, idToken string) (string, error) {
	const prefix = "valid:"
	if len(idToken) > len(prefix) && idToken[:len(prefix)] == prefix {
		return idToken[len(prefix):], nil
	}
	return "", errors.New("token rejected")
}

// silentSender satisfies notifications.Sender without delivering anything.
type silentSender struct{}

func (silentSender) Send(context.Context, string, map[string]string) error { return nil }

func (silentSender) SendMulticast(context.Context, []string, map[string]string) ([]string, error) {
	return nil, nil
}

func setupHandlerTest(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		Port:           "8080",
		AdminJWTSecret: "handler-test-admin-secret",
		Env:            "test",
	}

	s, err := NewServerWithDeps(cfg, db, nil, headerVerifier{}, silentSender{}, nil, nil)
	if err != nil {
		t.Fatalf("build server: %v", err)
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, uid string) *models.User {
	t.Helper()
	user := &models.User{
		UID:       uid,
		NickName:  uid,
		PushToken: "token-" + uid,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", uid, err)
	}
	return user
}

func doJSON(t *testing.T, app *fiber.App, method, path, uid string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("uid", uid)
		req.Header.Set("id_token", "valid:"+uid)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAuthRequired_RejectsMissingAndUnknownUID(t *testing.T) {
	t.Parallel()

	_, app, _ := setupHandlerTest(t)

	resp := doJSON(t, app, http.MethodGet, "/api/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing uid: expected 401, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED code, got %q", body.Code)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/users/me", "nobody", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown uid: expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestLogin_CreatesAccountOnFirstSession(t *testing.T) {
	t.Parallel()

	_, app, db := setupHandlerTest(t)

	login := func(token string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/users/session", nil)
		req.Header.Set("id_token", token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test session: %v", err)
		}
		return resp
	}

	resp := login("")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("empty token: expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = login("forged")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = login("valid:newcomer")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first login: expected 200, got %d", resp.StatusCode)
	}
	var session struct {
		User *models.User `json:"user"`
	}
	decodeBody(t, resp, &session)
	if session.User == nil || session.User.ID == 0 {
		t.Fatalf("expected created user in session, got %+v", session.User)
	}

	resp = login("valid:newcomer")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	var count int64
	if err := db.Model(&models.User{}).Where("uid = ?", "newcomer").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single account for uid, got %d", count)
	}
}

func TestRequestAcceptFlow_OpensRoomAndAlertsRequester(t *testing.T) {
	t.Parallel()

	_, app, db := setupHandlerTest(t)
	alice := createHandlerTestUser(t, db, "alice")
	bob := createHandlerTestUser(t, db, "bob")

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/requests/%d", bob.ID), "alice",
		map[string]int{"request_type_id": 1})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request: expected 201, got %d", resp.StatusCode)
	}
	var request models.Request
	decodeBody(t, resp, &request)
	if request.UserFromID != alice.ID || request.UserToID != bob.ID {
		t.Fatalf("unexpected request row: %+v", request)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/requests/received", "bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("received list: expected 200, got %d", resp.StatusCode)
	}
	var received []models.Request
	decodeBody(t, resp, &received)
	if len(received) != 1 || received[0].ID != request.ID {
		t.Fatalf("expected bob to see the pending request, got %+v", received)
	}

	// Alice cannot answer her own request.
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/requests/%d/response", request.ID),
		"alice", map[string]int{"response": models.RequestAccepted})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self respond: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/requests/%d/response", request.ID),
		"bob", map[string]int{"response": models.RequestAccepted})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d", resp.StatusCode)
	}
	var accepted models.Request
	decodeBody(t, resp, &accepted)
	if !accepted.Accepted() {
		t.Fatalf("expected accepted request, got response %v", accepted.Response)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/chat-rooms", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rooms: expected 200, got %d", resp.StatusCode)
	}
	var rooms []models.ChatRoom
	decodeBody(t, resp, &rooms)
	if len(rooms) != 1 {
		t.Fatalf("expected one room for alice, got %d", len(rooms))
	}

	resp = doJSON(t, app, http.MethodGet, "/api/alerts", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("alerts: expected 200, got %d", resp.StatusCode)
	}
	var alerts []struct {
		Type     string `json:"type"`
		UserID   string `json:"user_id"`
		NickName string `json:"nick_name"`
	}
	decodeBody(t, resp, &alerts)
	if len(alerts) != 1 || alerts[0].Type != models.PushTypeMatched {
		t.Fatalf("expected a single match alert, got %+v", alerts)
	}
	if alerts[0].UserID != fmt.Sprintf("%d", bob.ID) || alerts[0].NickName != "bob" {
		t.Fatalf("expected bob as alert actor, got %+v", alerts[0])
	}
}

func TestSendRequest_RequiresMatchingIdentityToken(t *testing.T) {
	t.Parallel()

	_, app, db := setupHandlerTest(t)
	alice := createHandlerTestUser(t, db, "alice")
	bob := createHandlerTestUser(t, db, "bob")
	createHandlerTestUser(t, db, "mallory")

	send := func(idToken string) *http.Response {
		raw, err := json.Marshal(map[string]int{"request_type_id": 1})
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/requests/%d", bob.ID), bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("uid", alice.UID)
		if idToken != "" {
			req.Header.Set("id_token", idToken)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test send request: %v", err)
		}
		return resp
	}

	// A bare uid header is not enough: no token, a rejected token and a
	// token belonging to someone else must all fail.
	for _, token := range []string{"", "forged", "valid:mallory"} {
		resp := send(token)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("token %q: expected 403, got %d", token, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	var count int64
	if err := db.Model(&models.Request{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no request rows after rejected sends, got %d", count)
	}

	resp := send("valid:alice")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("matching token: expected 201, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestOpenChatRoom_RequiresMatchingIdentityToken(t *testing.T) {
	t.Parallel()

	_, app, db := setupHandlerTest(t)
	alice := createHandlerTestUser(t, db, "alice")
	bob := createHandlerTestUser(t, db, "bob")

	room := models.ChatRoom{Members: []models.User{*alice, *bob}}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}

	open := func(idToken string) *http.Response {
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/chat-rooms/%d/open", room.ID), nil)
		req.Header.Set("uid", alice.UID)
		if idToken != "" {
			req.Header.Set("id_token", idToken)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test open room: %v", err)
		}
		return resp
	}

	resp := open("valid:bob")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("mismatched token: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = open("valid:alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matching token: expected 200, got %d", resp.StatusCode)
	}
	var opened models.ChatRoom
	decodeBody(t, resp, &opened)
	if !opened.Available {
		t.Fatalf("expected the room to be available, got %+v", opened)
	}
}

func TestPostFavoriteUsers_VisibleToAuthorOnly(t *testing.T) {
	t.Parallel()

	_, app, db := setupHandlerTest(t)
	createHandlerTestUser(t, db, "author")
	fan := createHandlerTestUser(t, db, "fan")

	resp := doJSON(t, app, http.MethodPost, "/api/posts", "author",
		map[string]any{"description": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d", resp.StatusCode)
	}
	var post models.Post
	decodeBody(t, resp, &post)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/favorite", post.ID), "fan", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("favorite: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/favorite", post.ID), "fan", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-author: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/favorite", post.ID), "author", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("author: expected 200, got %d", resp.StatusCode)
	}
	var fans []models.User
	decodeBody(t, resp, &fans)
	if len(fans) != 1 || fans[0].ID != fan.ID {
		t.Fatalf("expected the fan in the list, got %+v", fans)
	}
}

func TestAdminRequired_GuardsReviewEndpoints(t *testing.T) {
	t.Parallel()

	s, app, db := setupHandlerTest(t)
	reviewer := createHandlerTestUser(t, db, "reviewer")
	candidate := createHandlerTestUser(t, db, "candidate")

	approvePath := fmt.Sprintf("/api/users/%d/approval", candidate.ID)

	signToken := func(role string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"role": role,
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(s.config.AdminJWTSecret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return signed
	}

	approve := func(adminToken string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, approvePath, nil)
		req.Header.Set("uid", reviewer.UID)
		if adminToken != "" {
			req.Header.Set("X-Admin-Token", adminToken)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test approval: %v", err)
		}
		return resp
	}

	resp := approve("")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("no token: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = approve("not.a.jwt")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("garbage token: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = approve(signToken("support"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong role: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = approve(signToken("admin"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin token: expected 200, got %d", resp.StatusCode)
	}
	var approved models.User
	decodeBody(t, resp, &approved)
	if approved.Status != models.UserStatusApproved || !approved.Available {
		t.Fatalf("expected approved and available, got status=%d available=%v",
			approved.Status, approved.Available)
	}
}
