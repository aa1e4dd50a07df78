package models

// Post is a feed entry. At least one of Description and URL must be set.
type Post struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	AuthorID      uint   `gorm:"not null;index" json:"author_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	EnableComment bool   `json:"enable_comment"`
	CreatedAt     int64  `gorm:"autoCreateTime" json:"created_at"`

	Author   User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments"`

	// FavoriteUserIDs is the single set of ids; display users are
	// resolved at read time, never stored alongside.
	FavoriteUserIDs []uint `gorm:"-" json:"favorite_user_ids"`
}

// Favorite marks a post as favorited by a user. The unique pair index
// makes repeated favorites a no-op at the storage level.
type Favorite struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	PostID    uint  `gorm:"not null;uniqueIndex:idx_favorite_post_user" json:"post_id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_favorite_post_user" json:"user_id"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
}
