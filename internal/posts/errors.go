package posts

import "fmt"

// ValidationError reports rejected input. Field names the offending
// input when known.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// ConflictError reports a uniqueness collision, typically on the slug.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Msg
}

// PreconditionError reports an operation applied to a post in the
// wrong editorial state.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return "precondition: " + e.Msg
}

// ForbiddenError reports an operation the caller may not perform.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Msg
}

// NotFoundError reports a missing resource. Posts invisible to the
// caller surface as NotFoundError rather than ForbiddenError.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// RateLimitedError reports that the caller exhausted a submission
// window.
type RateLimitedError struct {
	Msg string
}

func (e *RateLimitedError) Error() string {
	return "rate limited: " + e.Msg
}

func validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
