package models

import "errors"

// Validation errors shared across models.
var (
	ErrNameRequired       = errors.New("name is required")
	ErrAccountRequired    = errors.New("account_id is required")
	ErrServerRequired     = errors.New("server is required")
	ErrPatternRequired    = errors.New("pattern is required")
	ErrValueRequired      = errors.New("value is required")
	ErrChannelRequired    = errors.New("channel_id is required")
	ErrCredentialRequired = errors.New("credential_id is required")
	ErrUsernameRequired   = errors.New("username is required")
)
