package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidDefinition   = errors.New("invalid workflow definition")
	ErrInvalidTransition   = errors.New("invalid instance transition")
	ErrClaimConflict       = errors.New("instance already claimed or changed")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrNoContent           = errors.New("no message content")
)
