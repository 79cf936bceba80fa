package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingFields     = errors.New("required fields are missing")
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUserNotFound      = errors.New("user not found")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrTokenStale        = errors.New("token no longer matches the account")
	ErrProjectNotFound   = errors.New("project not found")
	ErrTaskNotFound      = errors.New("task not found")
)
