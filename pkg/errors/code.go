package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Session & Auth errors
// 12000-12999: Problem module errors
// 13000-13999: Catalog module errors
// 14000-14999: Sync & Remote store errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	ServiceUnavailable  ErrorCode = 10006
	Timeout             ErrorCode = 10007

	// Local store errors (10100-10199)
	LocalStoreError    ErrorCode = 10100
	LocalStoreGetError ErrorCode = 10101
	LocalStoreSetError ErrorCode = 10102

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidValue       ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10302

	// ========== Session & Auth Errors (11000-11999) ==========

	TokenInvalid     ErrorCode = 11000
	TokenExpired     ErrorCode = 11001
	SessionNotFound  ErrorCode = 11002
	IdentityMismatch ErrorCode = 11003

	// ========== Problem Module Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	DuplicateProblem    ErrorCode = 12001
	ProblemImmutable    ErrorCode = 12002
	ProblemCreateFailed ErrorCode = 12003
	ProblemUpdateFailed ErrorCode = 12004
	ProblemDeleteFailed ErrorCode = 12005
	InvalidDifficulty   ErrorCode = 12006

	// ========== Catalog Module Errors (13000-13999) ==========

	CatalogUnavailable ErrorCode = 13000
	CatalogMalformed   ErrorCode = 13001

	// ========== Sync & Remote Store Errors (14000-14999) ==========

	RemoteUnavailable  ErrorCode = 14000
	RemoteReadFailed   ErrorCode = 14001
	RemoteWriteFailed  ErrorCode = 14002
	SyncRequiresSignIn ErrorCode = 14100
	ReconcileFailed    ErrorCode = 14101
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Local store
	LocalStoreError:    "Local store operation failed",
	LocalStoreGetError: "Failed to read from local store",
	LocalStoreSetError: "Failed to write to local store",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Session & Auth
	TokenInvalid:     "Invalid token",
	TokenExpired:     "Token has expired",
	SessionNotFound:  "No active session",
	IdentityMismatch: "Identity does not match active session",

	// Problem
	ProblemNotFound:     "Problem not found",
	DuplicateProblem:    "A problem with this title already exists",
	ProblemImmutable:    "Standard problems cannot be modified or deleted",
	ProblemCreateFailed: "Failed to create problem",
	ProblemUpdateFailed: "Failed to update problem",
	ProblemDeleteFailed: "Failed to delete problem",
	InvalidDifficulty:   "Difficulty must be Easy, Medium or Hard",

	// Catalog
	CatalogUnavailable: "Problem catalog is unavailable",
	CatalogMalformed:   "Problem catalog payload is malformed",

	// Sync & Remote
	RemoteUnavailable:  "Remote store is unavailable",
	RemoteReadFailed:   "Failed to read remote document",
	RemoteWriteFailed:  "Failed to write remote document",
	SyncRequiresSignIn: "Sync requires an authenticated session",
	ReconcileFailed:    "Reconciliation failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid, c == SessionNotFound:
		return 401
	case c == Forbidden, c == ProblemImmutable, c == IdentityMismatch:
		return 403
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == DuplicateProblem:
		return 409
	case c == ServiceUnavailable, c == RemoteUnavailable, c == CatalogUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == InvalidDifficulty, c == SyncRequiresSignIn:
		return 400
	default:
		return 500
	}
}
