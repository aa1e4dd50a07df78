package models

// Comment vote values.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Comment is a reply on a post. ParentID links one level of sub-comments.
type Comment struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PostID    uint   `gorm:"not null;index" json:"post_id"`
	ParentID  *uint  `gorm:"index" json:"parent_id,omitempty"`
	UserID    uint   `gorm:"not null" json:"user_id"`
	Body      string `gorm:"type:text" json:"comment"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`

	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SubComments []Comment `gorm:"foreignKey:ParentID" json:"sub_comments"`

	// Voter id sets, split from CommentVote rows at read time. A voter
	// holds exactly one row, so up and down are mutually exclusive.
	ThumbUpUserIDs   []uint `gorm:"-" json:"thumb_up_user_ids"`
	ThumbDownUserIDs []uint `gorm:"-" json:"thumb_down_user_ids"`
}

// CommentVote is a single voter's stance on a comment, +1 or -1. One row
// per (comment, user); switching sides overwrites the row.
type CommentVote struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	CommentID uint  `gorm:"not null;uniqueIndex:idx_vote_comment_user" json:"comment_id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_vote_comment_user" json:"user_id"`
	Value     int   `gorm:"not null" json:"value"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
}

// SplitVotes fills the thumb id sets from loaded vote rows.
func (c *Comment) SplitVotes(votes []CommentVote) {
	c.ThumbUpUserIDs = make([]uint, 0)
	c.ThumbDownUserIDs = make([]uint, 0)
	for _, v := range votes {
		if v.CommentID != c.ID {
			continue
		}
		if v.Value == VoteUp {
			c.ThumbUpUserIDs = append(c.ThumbUpUserIDs, v.UserID)
		} else {
			c.ThumbDownUserIDs = append(c.ThumbDownUserIDs, v.UserID)
		}
	}
}
