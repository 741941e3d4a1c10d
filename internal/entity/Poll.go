package entity

import "time"

type PollStatus string

const (
	PollStatusPending  PollStatus = "pending"
	PollStatusApproved PollStatus = "approved"
	PollStatusRejected PollStatus = "rejected"
)

type PollType string

const (
	PollTypeTextText   PollType = "text-text"
	PollTypeImageImage PollType = "image-image"
	PollTypeTextImage  PollType = "text-image"
)

// PollOption is one side of a matchup. At least one of Text or ImageURL
// is set, enforced at creation.
type PollOption struct {
	Text     *string `json:"text"`
	ImageURL *string `json:"imageUrl"`
}

type Poll struct {
	ID        int64
	Question  string
	Type      PollType
	OptionA   PollOption
	OptionB   PollOption
	Status    PollStatus
	CreatedBy int64
	EndsAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
