// Package models contains data structures for the application's domain models.
package models

// UserStatus represents the moderation state of a user's profile.
type UserStatus int

const (
	// UserStatusOpened is the initial state and the state after any image change.
	UserStatusOpened UserStatus = 0
	// UserStatusPending means the profile has been submitted for review.
	UserStatusPending UserStatus = 10
	// UserStatusApproved means the profile passed review and is visible.
	UserStatusApproved UserStatus = 20
	// UserStatusRejected means the profile failed review.
	UserStatusRejected UserStatus = -10
)

// ImageStageApproved and ImageStagePending distinguish the reviewed image
// list from the one awaiting moderation.
const (
	ImageStageApproved = "approved"
	ImageStagePending  = "pending"
)

// User represents a member of the service. Identity lives with the external
// provider; UID is the verified subject identifier it hands us.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UID          string     `gorm:"uniqueIndex;not null" json:"-"`
	NickName     string     `json:"nick_name"`
	Sex          string     `json:"sex"`
	BirthedAt    int64      `json:"birthed_at"`
	Height       int        `json:"height"`
	BodyID       int        `json:"body_id"`
	Occupation   string     `json:"occupation"`
	Education    string     `json:"education"`
	ReligionID   int        `json:"religion_id"`
	DrinkID      int        `json:"drink_id"`
	SmokingID    int        `json:"smoking_id"`
	BloodID      int        `json:"blood_id"`
	Job          string     `json:"job"`
	Area         string     `json:"area"`
	Phone        string     `json:"phone"`
	Introduction string     `json:"introduction"`
	CharmIDs     []int      `gorm:"serializer:json" json:"charm_ids"`
	IdealTypeIDs []int      `gorm:"serializer:json" json:"ideal_type_ids"`
	InterestIDs  []int      `gorm:"serializer:json" json:"interest_ids"`
	PushToken    string     `json:"-"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	JoinedAt     int64      `gorm:"autoCreateTime" json:"joined_at"`
	LastLoginAt  int64      `json:"last_login_at"`
	Status       UserStatus `gorm:"default:0" json:"status"`
	Available    bool       `gorm:"default:false" json:"available"`

	Images []UserImage `gorm:"foreignKey:UserID" json:"-"`

	// Split views of Images, populated at read time.
	UserImages     []UserImage `gorm:"-" json:"user_images"`
	UserImagesTemp []UserImage `gorm:"-" json:"user_images_temp"`
}

// UserImage is one slot of a user's profile image grid. The same index can
// exist once per stage: the approved copy and the pending one under review.
type UserImage struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID uint   `gorm:"not null;index;uniqueIndex:idx_user_stage_index" json:"-"`
	Stage  string `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_stage_index" json:"-"`
	Index  int    `gorm:"not null;uniqueIndex:idx_user_stage_index" json:"index"`
	URL    string `json:"url"`
}

// SplitImages fills UserImages/UserImagesTemp from the loaded Images rows.
func (u *User) SplitImages() {
	u.UserImages = make([]UserImage, 0)
	u.UserImagesTemp = make([]UserImage, 0)
	for _, img := range u.Images {
		if img.Stage == ImageStageApproved {
			u.UserImages = append(u.UserImages, img)
		} else {
			u.UserImagesTemp = append(u.UserImagesTemp, img)
		}
	}
}

// PrimaryImageURL returns the first approved image URL, or "" when none.
func (u *User) PrimaryImageURL() string {
	best := ""
	bestIdx := -1
	for _, img := range u.Images {
		if img.Stage != ImageStageApproved {
			continue
		}
		if bestIdx == -1 || img.Index < bestIdx {
			best = img.URL
			bestIdx = img.Index
		}
	}
	return best
}
