package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Combine with NewSubSystemError for subsystem-specific codes.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrDuplicate    = fmt.Errorf("already exists")
	ErrUnauthorized = fmt.Errorf("unauthorized")
)

// Sentinel errors for the domain layer.
var (
	ErrUnknownOperation = fmt.Errorf("unknown agent operation")
	ErrAgentNotFound    = fmt.Errorf("agent not found")
	ErrCatalog          = fmt.Errorf("catalog query failed")
	ErrResearch         = fmt.Errorf("research failed")
	ErrResearchOpen     = fmt.Errorf("research circuit open")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrDecryption       = fmt.Errorf("decryption failed")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrAccessLog        = fmt.Errorf("access log write failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Runner.Execute")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // e.g. "backup", "market"; used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error. Returns nil if err is nil.
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether a caller may reasonably retry err.
// Nothing in the core retries on its own.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrResearchOpen) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
	CodeAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	CodeCatalog          ErrorCode = "CATALOG"
	CodeResearch         ErrorCode = "RESEARCH"
	CodeResearchOpen     ErrorCode = "RESEARCH_CIRCUIT_OPEN"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeAccessLog        ErrorCode = "ACCESS_LOG"

	CodeBackupOperation ErrorCode = "BACKUP_UNKNOWN_OPERATION"
	CodeAuditOperation  ErrorCode = "AUDIT_UNKNOWN_OPERATION"
	CodeScheduleInvalid ErrorCode = "SCHEDULE_INVALID"
)

var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrInvalidInput:     CodeInvalidInput,
	ErrTimeout:          CodeTimeout,
	ErrDuplicate:        CodeDuplicate,
	ErrUnauthorized:     CodeUnauthorized,
	ErrUnknownOperation: CodeUnknownOperation,
	ErrAgentNotFound:    CodeAgentNotFound,
	ErrCatalog:          CodeCatalog,
	ErrResearch:         CodeResearch,
	ErrResearchOpen:     CodeResearchOpen,
	ErrConfigLoad:       CodeConfigLoad,
	ErrDecryption:       CodeDecryption,
	ErrRateLimit:        CodeRateLimit,
	ErrAccessLog:        CodeAccessLog,
}

// subSystemCodeMap maps (sentinel, subsystem) pairs to specific codes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrUnknownOperation: {
		"backup": CodeBackupOperation,
		"audit":  CodeAuditOperation,
	},
	ErrInvalidInput: {
		"scheduler": CodeScheduleInvalid,
	},
}

// ErrorCodeOf returns the machine-parseable code for err, or CodeUnknown.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
