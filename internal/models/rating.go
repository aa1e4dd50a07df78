package models

// StarRating is a directed 1-5 score. The unique pair index keeps at most
// one rating per ordered pair; re-rating overwrites the score.
type StarRating struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	UserFromID uint  `gorm:"not null;uniqueIndex:idx_rating_pair" json:"user_from_id"`
	UserToID   uint  `gorm:"not null;uniqueIndex:idx_rating_pair" json:"user_to_id"`
	Score      int   `gorm:"not null" json:"score"`
	RatedAt    int64 `gorm:"autoCreateTime" json:"rated_at"`

	UserFrom User `gorm:"foreignKey:UserFromID" json:"user_from,omitempty"`
	UserTo   User `gorm:"foreignKey:UserToID" json:"user_to,omitempty"`
}
