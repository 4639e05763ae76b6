package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal   ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"

	// Authorization.
	ErrCodeAccessDenied          ErrorCode = "ACCESS_DENIED"
	ErrCodeResolutionUnavailable ErrorCode = "RESOLUTION_UNAVAILABLE"

	// Lifecycle.
	ErrCodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeDocumentNotFound       ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeDocumentArchived       ErrorCode = "DOCUMENT_ARCHIVED"

	// Workflow.
	ErrCodeAlreadyDecided     ErrorCode = "ALREADY_DECIDED"
	ErrCodeOutOfOrderDecision ErrorCode = "OUT_OF_ORDER_DECISION"
	ErrCodeSelfApproval       ErrorCode = "SELF_APPROVAL"
	ErrCodeDecisionNotFound   ErrorCode = "DECISION_NOT_FOUND"

	// Directory tree.
	ErrCodeCircularReference ErrorCode = "CIRCULAR_REFERENCE"
	ErrCodeDirectoryNotFound ErrorCode = "DIRECTORY_NOT_FOUND"

	// Identity.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUnknownRole        ErrorCode = "UNKNOWN_ROLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// Is makes sentinel comparison work after WithCause/WithDetails cloning.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewValidationFieldError wraps a single-field failure so the validation
// builder can aggregate it.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Details:    ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}},
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	// ErrAccessDenied is returned for every failed permission check. The
	// message never reveals whether the resource exists.
	ErrAccessDenied = NewForbiddenError("access denied", ErrCodeAccessDenied)

	// ErrResolutionUnavailable means the grant store could not be reached.
	// Treated as a denial for authorization purposes but logged distinctly
	// so operators can tell outages from real denials.
	ErrResolutionUnavailable = &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodeResolutionUnavailable,
		Message:    "permission resolution unavailable",
		StatusCode: http.StatusForbidden,
	}

	ErrInvalidTransition      = NewConflictError("invalid lifecycle transition", ErrCodeInvalidTransition)
	ErrConcurrentModification = NewConflictError("document was modified concurrently", ErrCodeConcurrentModification)
	ErrDocumentNotFound       = NewNotFoundError("document not found", ErrCodeDocumentNotFound)
	ErrDocumentArchived       = NewConflictError("document is archived", ErrCodeDocumentArchived)

	ErrAlreadyDecided     = NewConflictError("decision already recorded for this approver", ErrCodeAlreadyDecided)
	ErrOutOfOrderDecision = NewConflictError("decision recorded out of sequence", ErrCodeOutOfOrderDecision)
	ErrSelfApproval       = NewForbiddenError("document owner cannot approve their own document", ErrCodeSelfApproval)
	ErrDecisionNotFound   = NewNotFoundError("decision record not found", ErrCodeDecisionNotFound)

	ErrCircularReference = NewConflictError("directory re-parenting would create a cycle", ErrCodeCircularReference)
	ErrDirectoryNotFound = NewNotFoundError("directory not found", ErrCodeDirectoryNotFound)

	ErrInvalidCredentials = &AppError{Type: ErrorTypeForbidden, Code: ErrCodeInvalidCredentials, Message: "invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrUserInactive       = NewForbiddenError("user account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = &AppError{Type: ErrorTypeForbidden, Code: ErrCodeInvalidToken, Message: "invalid token", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired       = &AppError{Type: ErrorTypeForbidden, Code: ErrCodeTokenExpired, Message: "token has expired", StatusCode: http.StatusUnauthorized}
	ErrUnknownRole        = NewValidationError("unknown role value", ErrCodeUnknownRole)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
