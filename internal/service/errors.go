package service

import "errors"

// File operation errors. Handlers map ErrInvalidRequest to 400 and everything else to 500;
// the distinction otherwise only shows up in server logs.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrNotFound        = errors.New("file not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUpstreamFailure = errors.New("object storage operation failed")
)

// Account errors.
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired session token")
)
