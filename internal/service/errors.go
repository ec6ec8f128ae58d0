package service

import "errors"

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrBlockedURL    = errors.New("blocked url")
	ErrInvalidCode   = errors.New("invalid custom code")
	ErrInvalidExpiry = errors.New("expiration time is in the past")
	ErrCodeTaken     = errors.New("short code already taken")

	// ErrCodeSpaceExhausted means the random generator could not find a
	// free code within its retry budget. Not client-recoverable; logged
	// distinctly because it signals the code space is filling up.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")

	ErrNotFound  = errors.New("short url not found")
	ErrExpired   = errors.New("short url expired")
	ErrForbidden = errors.New("forbidden")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password too weak")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
)
