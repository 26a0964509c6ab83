package types

import "fmt"

// ErrorCode classifies the outcome of a command or query.
type ErrorCode int

// Possible command outcomes.
const (
	// CodeOK means the operation's side effect is applied remotely, or the
	// query output is valid.
	CodeOK ErrorCode = 0
	// CodeServiceNotReady means the remote module is not up or the link is
	// not connected; the request was never delivered.
	CodeServiceNotReady ErrorCode = 1
	// CodeTimeout means no response arrived within the deadline. The remote
	// outcome is unknown; callers must not assume the side effect was or was
	// not applied.
	CodeTimeout ErrorCode = 2
	// CodeInternalError means a local precondition was violated; no remote
	// round trip was made.
	CodeInternalError ErrorCode = 3
	// CodeServiceError means the remote side explicitly rejected the request.
	CodeServiceError ErrorCode = 4
)

// String returns the string representation of ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeServiceNotReady:
		return "SERVICE_NOT_READY"
	case CodeTimeout:
		return "TIMEOUT"
	case CodeInternalError:
		return "INTERNAL_ERROR"
	case CodeServiceError:
		return "SERVICE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is the uniform success/failure result returned by every command and
// query. It is a value, never an error: expected failure modes do not cross
// the SDK boundary as panics or errors.
type Status struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// OK returns a successful status.
func OK() Status {
	return Status{Code: CodeOK}
}

// IsOK reports whether the operation succeeded.
func (s Status) IsOK() bool {
	return s.Code == CodeOK
}

// String renders the status for logs and error messages.
func (s Status) String() string {
	if s.Message == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// Statusf builds a status with a formatted message.
func Statusf(code ErrorCode, format string, args ...any) Status {
	return Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InternalErrorf builds an INTERNAL_ERROR status for local precondition
// violations detected before any remote call.
func InternalErrorf(format string, args ...any) Status {
	return Statusf(CodeInternalError, format, args...)
}
