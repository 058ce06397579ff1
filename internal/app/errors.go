package app

import "errors"

// User-facing sentinel errors. Messages are part of the API contract and are
// returned to clients verbatim.
var (
	ErrAllFieldsRequired        = errors.New("All fields are required.")
	ErrInvalidEmail             = errors.New("Please enter a valid email address.")
	ErrPasswordMismatch         = errors.New("Passwords do not match.")
	ErrEmailAlreadyExists       = errors.New("An account with this email already exists.")
	ErrEmailAndPasswordRequired = errors.New("Email and password are required.")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("Invalid email or password.")

	ErrMessageRequired = errors.New("Message required")
	ErrTitleRequired   = errors.New("Title required")
	ErrChatNotFound    = errors.New("Chat not found")
)
