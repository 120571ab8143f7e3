package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	CodeThrottled          Code = "THROTTLED"
	CodeAlreadyPending     Code = "ALREADY_PENDING"
	CodeAlreadyApproved    Code = "ALREADY_APPROVED"
	CodeNoTeamMatch        Code = "NO_TEAM_MATCH"
	CodeAmbiguousMatch     Code = "AMBIGUOUS_MATCH"
	CodeNoPendingRequest   Code = "NO_PENDING_REQUEST"
	CodeNotRegistered      Code = "NOT_REGISTERED"
	CodeStoreUnavailable   Code = "STORE_UNAVAILABLE"
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
	CodeAccessGrantFailed  Code = "ACCESS_GRANT_FAILED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// Expected marks outcomes reported verbatim to the caller and logged at info.
	Expected bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		Expected:       true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeThrottled: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      true,
		PublicMessage:  "please wait before submitting again",
		DetailsAllowed: true,
		Expected:       true,
	},
	CodeAlreadyPending: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "a registration request is already pending review",
		Expected:      true,
	},
	CodeAlreadyApproved: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "already registered for a team",
		Expected:      true,
	},
	CodeNoTeamMatch: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "no team matches that name",
		Expected:      true,
	},
	CodeAmbiguousMatch: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "team name is not exact",
		DetailsAllowed: true,
		Expected:       true,
	},
	CodeNoPendingRequest: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "no pending registration request",
		Expected:      true,
	},
	CodeNotRegistered: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "not registered for any team",
		Expected:      true,
	},
	CodeStoreUnavailable: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "something went wrong, please try again later",
	},
	CodeNotificationFailed: {
		HTTPStatus:    http.StatusBadGateway,
		Retryable:     true,
		PublicMessage: "notification delivery failed",
	},
	CodeAccessGrantFailed: {
		HTTPStatus:    http.StatusBadGateway,
		Retryable:     true,
		PublicMessage: "access update failed",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsExpected reports whether err carries a code that is a normal user-facing outcome.
func IsExpected(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Expected
}

// HasCode reports whether err (or anything it wraps) is an *Error with the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
