package models

// ChatRoom is created exactly once per mutually accepted Request. Members
// is the current membership; MembersHistory keeps everyone who ever joined.
type ChatRoom struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"type:varchar(500)" json:"title"`
	CreatedAt   int64  `gorm:"autoCreateTime" json:"created_at"`
	Available   bool   `gorm:"not null;default:false" json:"available"`
	AvailableAt int64  `json:"available_at"`

	Members        []User    `gorm:"many2many:chat_room_members;" json:"members,omitempty"`
	MembersHistory []User    `gorm:"many2many:chat_room_members_history;" json:"members_history,omitempty"`
	Messages       []Message `gorm:"foreignKey:ChatRoomID" json:"messages"`
}

// Message is one chat line inside a room. Append-only; ordering is
// insertion order.
type Message struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ChatRoomID uint   `gorm:"not null;index" json:"chat_room_id"`
	UserID     uint   `gorm:"not null" json:"user_id"`
	Body       string `gorm:"type:text" json:"message"`
	CreatedAt  int64  `gorm:"autoCreateTime" json:"created_at"`
}
