package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrForbidden        = errors.New("forbidden")
	ErrQuestionNotFound = errors.New("question not found in conversation history")
)
