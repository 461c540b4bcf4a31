package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them to statuses.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

// Error carries a kind and a client-safe message. Err holds the cause and is
// never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

// Internal wraps an unexpected failure behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf extracts the kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

var (
	// ErrQuizNotFound is returned when no quiz matches an id or access key.
	ErrQuizNotFound = NotFound("quiz not found")
	// ErrQuizInactive is returned when an archived quiz is accessed or submitted.
	ErrQuizInactive = Forbidden("quiz inactive")
	// ErrEmptyQuiz is returned when none of a quiz's questions resolve.
	ErrEmptyQuiz = Validation("quiz has no questions")
	// ErrMissingAccessKey is returned when the access key is blank.
	ErrMissingAccessKey = Validation("access key is required")
	// ErrInvalidStudents is returned when no student has a non-blank name.
	ErrInvalidStudents = Validation("student info requires a non-blank name")
	// ErrInvalidAnswers is returned when the answers payload is not a mapping.
	ErrInvalidAnswers = Validation("answers must be an object keyed by question id")
	// ErrRevisionConflict is returned by stores when the document changed since load.
	ErrRevisionConflict = errors.New("document revision conflict")
)
