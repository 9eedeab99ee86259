package shared

import (
	"errors"
	"strings"
)

// Kind classifies every error that may reach a caller. The set is closed;
// transports map a Kind to a status exactly once.
type Kind int

const (
	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = iota
	// KindUnauthenticated means no credential was presented.
	KindUnauthenticated
	// KindInvalidCredential means the credential failed verification.
	KindInvalidCredential
	// KindForbidden means the principal lacks privilege or ownership.
	KindForbidden
	// KindValidation means the input was malformed.
	KindValidation
	// KindNotFound means the referenced record does not exist.
	KindNotFound
	// KindStorage means the backing store failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is a classified error whose message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
}

// NewError constructs a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind so that domain errors satisfy the
// generic sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrUnauthenticated indicates a request without credential.
	ErrUnauthenticated = NewError(KindUnauthenticated, "No token, authorization denied")
	// ErrInvalidCredential indicates a bad signature, algorithm or expiry.
	ErrInvalidCredential = NewError(KindInvalidCredential, "Token is not valid")
	// ErrForbidden indicates insufficient privilege.
	ErrForbidden = NewError(KindForbidden, "Forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = NewError(KindNotFound, "Not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = NewError(KindValidation, "Validation failed")
	// ErrStorage matches every *StorageError.
	ErrStorage = NewError(KindStorage, "Server error")
)

// FieldError reports a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field messages.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field errors.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Message
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failure of the backing store. The wrapped error is
// for server-side logs only.
type StorageError struct {
	Op  string
	Err error
}

// Storage wraps err as a StorageError for op. It returns nil for nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// KindOf classifies err.
func KindOf(err error) Kind {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return KindStorage
	}
	var kindErr *Error
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return KindInternal
}

// UserSafeMessage returns the message that may be shown to a caller.
// Storage and internal failures collapse to a generic text.
func UserSafeMessage(err error) string {
	switch KindOf(err) {
	case KindStorage, KindInternal:
		return ErrStorage.Message
	case KindValidation:
		var validationErr *ValidationError
		errors.As(err, &validationErr)
		return validationErr.Error()
	default:
		var kindErr *Error
		errors.As(err, &kindErr)
		return kindErr.Message
	}
}
