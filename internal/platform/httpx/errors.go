// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/aqanja/blog-api/internal/shared"
)

// StatusFor maps an error kind to its HTTP status. It is the only place the
// mapping lives.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindUnauthenticated, shared.KindInvalidCredential:
		return http.StatusUnauthorized
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP problem responses. Storage and
// unclassified errors never leak their detail.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	status := StatusFor(kind)
	problem := ProblemDetail{
		Type:    kind.String(),
		Title:   http.StatusText(status),
		Status:  status,
		Message: shared.UserSafeMessage(err),
	}
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		problem.Errors = validationErr.Fields
	}
	JSON(w, status, problem)
}
