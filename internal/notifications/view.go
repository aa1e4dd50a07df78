package notifications

import (
	"strconv"

	"heartlink/internal/models"
)

// RecordView is the client-facing shape of one alert record. Every field
// is a string: reference ids are stringified and empty when absent, the
// timestamp and read flag are stringified too. The acting user's nickname
// and primary image are resolved at read time so renames show up in old
// alerts.
type RecordView struct {
	PushID     string `json:"push_id"`
	UserID     string `json:"user_id"`
	PostID     string `json:"post_id"`
	CommentID  string `json:"comment_id"`
	RequestID  string `json:"request_id"`
	ChatRoomID string `json:"chat_room_id"`
	MessageID  string `json:"message_id"`
	Type       string `json:"type"`
	NickName   string `json:"nick_name"`
	ImageURL   string `json:"image_url"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
	IsRead     string `json:"is_read"`
}

// NewRecordView flattens a record with its resolved actor. A nil actor
// (deleted user) leaves the name and image empty.
func NewRecordView(rec *models.AlertRecord, actor *models.User) RecordView {
	view := RecordView{
		PushID:     formatID(&rec.ID),
		UserID:     formatID(&rec.UserID),
		PostID:     formatID(rec.PostID),
		CommentID:  formatID(rec.CommentID),
		RequestID:  formatID(rec.RequestID),
		ChatRoomID: formatID(rec.ChatRoomID),
		MessageID:  formatID(rec.MessageID),
		Type:       rec.Type,
		Message:    rec.Body,
		CreatedAt:  strconv.FormatInt(rec.CreatedAt, 10),
		IsRead:     strconv.FormatBool(rec.IsRead),
	}
	if actor != nil {
		view.NickName = actor.NickName
		view.ImageURL = actor.PrimaryImageURL()
	}
	return view
}

func formatID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}
