package service

import (
	"context"
	"testing"

	"heartlink/internal/models"
)

func (env *serviceTestEnv) createRoom(t *testing.T, members ...*models.User) *models.ChatRoom {
	t.Helper()
	room := &models.ChatRoom{Title: "test room"}
	for _, m := range members {
		room.Members = append(room.Members, *m)
		room.MembersHistory = append(room.MembersHistory, *m)
	}
	if err := env.chats.Create(context.Background(), room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestSendMessagePushesToOtherMembersOnly(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	room := env.createRoom(t, alice, bob)

	msg, err := env.chatSvc.SendMessage(ctx, alice.ID, room.ID, "hey")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if msg.ChatRoomID != room.ID || msg.UserID != alice.ID {
		t.Fatalf("unexpected message row: %+v", msg)
	}

	if len(env.sender.sentTokens) != 1 || env.sender.sentTokens[0] != bob.PushToken {
		t.Fatalf("expected a single push to bob, got %v", env.sender.sentTokens)
	}
	if env.sender.sent[0]["type"] != models.PushTypeMessage {
		t.Fatalf("expected MESSAGE push, got %v", env.sender.sent[0])
	}

	// Chat traffic never lands in the alert log.
	if len(env.alertTypes(t, bob.ID)) != 0 {
		t.Fatal("a chat message must not append an alert record")
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	room := env.createRoom(t, alice, bob)

	_, err := env.chatSvc.SendMessage(ctx, carol.ID, room.ID, "let me in")
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestOpenRoomFlipsAvailabilityAndPushes(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	room := env.createRoom(t, alice, bob)

	opened, err := env.chatSvc.OpenRoom(ctx, alice.ID, room.ID)
	if err != nil {
		t.Fatalf("open room: %v", err)
	}
	if !opened.Available || opened.AvailableAt == 0 {
		t.Fatalf("expected the room to be available, got %+v", opened)
	}

	if len(env.sender.sent) != 1 || env.sender.sent[0]["type"] != models.PushTypeOpened {
		t.Fatalf("expected one OPENED push, got %v", env.sender.sent)
	}
	if len(env.alertTypes(t, bob.ID)) != 0 {
		t.Fatal("opening a room must not append an alert record")
	}
}

func TestDeleteRoomRemovesMessages(t *testing.T) {
	t.Parallel()

	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	room := env.createRoom(t, alice, bob)

	if _, err := env.chatSvc.SendMessage(ctx, alice.ID, room.ID, "hi"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if err := env.chatSvc.DeleteRoom(ctx, bob.ID, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	var messages int64
	env.db.Model(&models.Message{}).Where("chat_room_id = ?", room.ID).Count(&messages)
	if messages != 0 {
		t.Fatalf("expected messages to be deleted with the room, got %d", messages)
	}

	rooms, err := env.chatSvc.GetRooms(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms left for alice, got %d", len(rooms))
	}
}
