package repo

import "errors"

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)
