package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been opened.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrCategoryNotFound indicates a source does not know the requested category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryUnplayable is returned when a category yields no questions.
	ErrCategoryUnplayable = errors.New("category cannot be played")
	// ErrSessionNotComplete indicates an operation needs a finished session.
	ErrSessionNotComplete = errors.New("quiz session not complete")
	// ErrSourceUnavailable signals that no question source could answer, fallback included.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrRecordNotFound is returned by key-value stores for missing keys.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidQuestion indicates question data breaks its invariants.
	ErrInvalidQuestion = errors.New("invalid question")
)
