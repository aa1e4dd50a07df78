package models

// Push types carried by alert records.
const (
	PushTypeMessage    = "MESSAGE"
	PushTypeOpened     = "OPENED"
	PushTypeFavorite   = "FAVORITE"
	PushTypeThumbUp    = "THUMB_UP"
	PushTypeRequest    = "REQUEST"
	PushTypeMatched    = "MATCHED"
	PushTypePoke       = "POKE"
	PushTypeStarRating = "STAR_RATING"
)

// MaxAlertRecords caps each owner's notification log length.
const MaxAlertRecords = 100

// Alert is a user's notification container, one per owner. Created lazily
// on first access or eagerly on user creation; the unique owner index
// makes the get-or-create race safe.
type Alert struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `gorm:"not null;uniqueIndex" json:"owner_id"`

	Records []AlertRecord `gorm:"foreignKey:AlertID" json:"records"`
}

// AlertRecord is one notification event. UserID is the acting user; the
// remaining reference ids are optional and depend on Type.
type AlertRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	AlertID    uint   `gorm:"not null;index" json:"-"`
	Type       string `gorm:"type:varchar(20);not null" json:"type"`
	UserID     uint   `gorm:"not null" json:"user_id"`
	PostID     *uint  `json:"post_id,omitempty"`
	CommentID  *uint  `json:"comment_id,omitempty"`
	RequestID  *uint  `json:"request_id,omitempty"`
	ChatRoomID *uint  `json:"chat_room_id,omitempty"`
	MessageID  *uint  `json:"message_id,omitempty"`
	Body       string `json:"message"`
	CreatedAt  int64  `gorm:"autoCreateTime" json:"created_at"`
	IsRead     bool   `gorm:"default:false" json:"is_read"`
}
