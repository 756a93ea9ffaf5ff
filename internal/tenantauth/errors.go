// errors.go defines the client-visible error taxonomy for store scope
// resolution and authorization. Codes are stable API contract values; handlers
// and middleware serialize them as {"code": ..., "error": ...} JSON bodies.
package tenantauth

import (
	"fmt"
	"net/http"
)

// Code identifies a scope-resolution failure class. Values are part of the
// public API and must not be renamed.
type Code string

const (
	CodeMissingScopeID       Code = "MISSING_SCOPE_ID"
	CodeInvalidScopeIDFormat Code = "INVALID_SCOPE_ID_FORMAT"
	CodeNoPeerMapping        Code = "NO_PEER_MAPPING"
	CodeUnauthenticated      Code = "UNAUTHENTICATED"
	CodeNoStoreAccess        Code = "NO_STORE_ACCESS"
	CodeStoreNotFound        Code = "STORE_NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is a resolution or authorization failure with a stable code and the
// HTTP status it maps to. The wrapped cause (if any) is for logs only and is
// never serialized to the client.
type Error struct {
	Code    Code
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// ErrMissingScopeID reports an absent or empty x-store-id header.
func ErrMissingScopeID() *Error {
	return &Error{Code: CodeMissingScopeID, Status: http.StatusBadRequest, Message: "x-store-id header is required"}
}

// ErrInvalidScopeIDFormat reports a header value that is neither a UUID nor a
// peer store id.
func ErrInvalidScopeIDFormat() *Error {
	return &Error{Code: CodeInvalidScopeIDFormat, Status: http.StatusBadRequest, Message: "x-store-id must be a store UUID or a peer store id"}
}

// ErrNoPeerMapping reports a syntactically valid peer store id that no store
// is linked to.
func ErrNoPeerMapping() *Error {
	return &Error{Code: CodeNoPeerMapping, Status: http.StatusNotFound, Message: "no store is linked to this peer store id"}
}

// ErrUnauthenticated reports a request with no user session.
func ErrUnauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "authentication required"}
}

// ErrNoStoreAccess reports an authenticated user with no active membership in
// the resolved store.
func ErrNoStoreAccess() *Error {
	return &Error{Code: CodeNoStoreAccess, Status: http.StatusForbidden, Message: "you do not have access to this store"}
}

// ErrStoreNotFound reports a store-scoped lookup that found nothing for this
// store. It is returned uniformly whether the record does not exist or belongs
// to another store, so callers cannot probe cross-store existence.
func ErrStoreNotFound() *Error {
	return &Error{Code: CodeStoreNotFound, Status: http.StatusNotFound, Message: "not found"}
}

// ErrConflict reports a peer mapping collision with a different store.
func ErrConflict(msg string) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusConflict, Message: msg}
}

// ErrValidation reports a malformed request body or parameter.
func ErrValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

// ErrInternal wraps a storage or infrastructure failure. The cause is logged
// by the caller; the client sees only the generic message.
func ErrInternal(cause error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error", cause: cause}
}
