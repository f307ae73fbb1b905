package board

import "errors"

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrRowNotFound      = errors.New("row not found")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrUnknownField     = errors.New("unknown field")
	ErrDuplicateID      = errors.New("duplicate row id")
)
