package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPasswordTooShort indicates a new password below the minimum length.
	ErrPasswordTooShort = errors.New("password is too short")
	// ErrPasswordMismatch indicates the confirmation does not match the new password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNotLoggedIn indicates an operation that needs a logged-in user.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrCardNotFound indicates an unknown payment source id.
	ErrCardNotFound = errors.New("payment source not found")
	// ErrNoSetupIntent indicates a payment method save without a setup intent.
	ErrNoSetupIntent = errors.New("no setup intent")
	// ErrRewardNotFound indicates an unknown reward id.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrMissingDependency indicates a required collaborator was not provided.
	ErrMissingDependency = errors.New("missing dependency")
)
