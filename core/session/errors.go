package session

import "errors"

var (
	ErrExpired         = errors.New("session has expired")
	ErrNotFound        = errors.New("session not found")
	ErrMissingSubject  = errors.New("session subject is required")
	ErrTokenGeneration = errors.New("failed to generate token")
	ErrSaveSession     = errors.New("failed to save session")
	ErrDeleteSession   = errors.New("failed to delete session")
)
