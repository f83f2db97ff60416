package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionConflict    = errors.New("active session already exists")
	ErrCredentialsExpired = errors.New("credentials expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrProofRevoked       = errors.New("identity proof revoked")
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrContentNotFound = errors.New("content not found")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseUpdate     = errors.New("database update error")
	ErrServiceUnavailable = errors.New("service unavailable")
)
