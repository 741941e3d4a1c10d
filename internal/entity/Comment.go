package entity

import "time"

type Comment struct {
	ID          int64     `json:"id"`
	PollID      int64     `json:"-"`
	UserID      int64     `json:"-"`
	Body        string    `json:"body"`
	AuthorEmail string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
}
