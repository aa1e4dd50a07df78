package models

// Request responses. A nil Response means the request is still pending.
const (
	RequestDeclined = 0
	RequestAccepted = 1
)

// Request is a directed "like" edge between two users. At most one
// unresolved edge may exist between a pair in either direction; a
// reciprocal pending request collapses into a single accepted edge.
type Request struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	UserFromID  uint  `gorm:"not null;index:idx_request_pair" json:"user_from_id"`
	UserToID    uint  `gorm:"not null;index:idx_request_pair" json:"user_to_id"`
	RequestType int   `gorm:"not null" json:"request_type_id"`
	Response    *int  `json:"response"`
	RequestedAt int64 `gorm:"autoCreateTime" json:"requested_at"`
	RespondedAt int64 `json:"responded_at"`

	UserFrom User `gorm:"foreignKey:UserFromID" json:"user_from,omitempty"`
	UserTo   User `gorm:"foreignKey:UserToID" json:"user_to,omitempty"`
}

// Pending reports whether the request has not been responded to yet.
func (r *Request) Pending() bool {
	return r.Response == nil
}

// Accepted reports whether the recipient accepted the request.
func (r *Request) Accepted() bool {
	return r.Response != nil && *r.Response == RequestAccepted
}
