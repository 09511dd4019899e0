package util

import "errors"

var (
	ErrNoSession          = errors.New("no stored roll number for this session")
	ErrMissingCredentials = errors.New("roll number and name are required")
	ErrRegistrationFailed = errors.New("failed to create user")
	ErrFormLoad           = errors.New("failed to load form")
	ErrInvalidState       = errors.New("operation not allowed in current form state")
	ErrAtFirstSection     = errors.New("already at the first section")
	ErrUnknownField       = errors.New("field does not exist in the loaded form")
	ErrInvalidFieldValue  = errors.New("value does not match the field type")
	ErrStudentNotFound    = errors.New("student not found")
	ErrFormNotFound       = errors.New("form not found")
	ErrInvalidSession     = errors.New("invalid session token")
)
