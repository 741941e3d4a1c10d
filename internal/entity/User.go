package entity

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Role      UserRole  `json:"role"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is a verified caller: the token was valid and the user row exists.
type Identity struct {
	UserID int64
	Email  string
	Role   UserRole
	Banned bool
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
