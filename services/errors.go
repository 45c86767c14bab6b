// services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/avishkar-club/treasury_backend/models"
)

// Sentinel failures shared by all workflows. Every operation surfaces one of
// these (or ValidationError / InvalidStateTransitionError /
// DuplicateActiveRequestError below), never a raw driver error, for domain
// conditions.
var (
	ErrNotFound           = errors.New("request not found")
	ErrForbidden          = errors.New("actor is not allowed to perform this operation")
	ErrMalformedReference = errors.New("malformed reference code")
	ErrReferenceExhausted = errors.New("reference code space exhausted for owner")
)

// ValidationError reports a malformed or missing field, e.g. a blank rejection
// reason or a non-positive amount.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Msg
}

func validationErrf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateTransitionError reports an operation attempted from an illegal
// source state. The request is left unmodified.
type InvalidStateTransitionError struct {
	Kind models.RequestKind
	From models.Status
	To   models.Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Kind, e.From, e.To)
}

// DuplicateActiveRequestError reports a second open request for a constrained
// key, e.g. a second fund payment for the same (requester, period).
type DuplicateActiveRequestError struct {
	Kind models.RequestKind
	Key  string
}

func (e *DuplicateActiveRequestError) Error() string {
	return fmt.Sprintf("%s: an active request already exists for %s", e.Kind, e.Key)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidTransition reports whether err is an InvalidStateTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidStateTransitionError
	return errors.As(err, &te)
}

// IsDuplicateActive reports whether err is a DuplicateActiveRequestError.
func IsDuplicateActive(err error) bool {
	var de *DuplicateActiveRequestError
	return errors.As(err, &de)
}
