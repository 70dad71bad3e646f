package toolregistry

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by Registry methods, grounded on the teacher's
// internal/agent/errors.go sentinel set.
var (
	ErrToolNotFound        = errors.New("tool not found")
	ErrDuplicateTool       = errors.New("tool already registered")
	ErrInvocationDisabled  = errors.New("tool invocation is disabled")
	ErrCreationDisabled    = errors.New("tool creation is disabled")
	ErrInvalidManifest     = errors.New("invalid tool manifest")
)

// ErrorType classifies a tool execution failure so callers can decide
// whether a retry is worthwhile, mirroring the teacher's ToolErrorType.
type ErrorType string

const (
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// IsRetryable reports whether a failure of this type is worth retrying.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case ErrorTypeTimeout, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// ExecutionError wraps a tool's failure with a classified type and the
// tool name, so the orchestrator can decide whether to retry, surface to
// the model, or trigger self-healing.
type ExecutionError struct {
	ToolName string
	Type     ErrorType
	Cause    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed (%s): %v", e.ToolName, e.Type, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// classifyExecutionError pattern-matches an underlying error's message the
// same way the teacher's classifyToolError does, since subprocess and HTTP
// failures rarely carry typed Go errors across the exec boundary.
func classifyExecutionError(err error) ErrorType {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "dial"):
		return ErrorTypeNetwork
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return ErrorTypePermission
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "validation"):
		return ErrorTypeInvalidInput
	case strings.Contains(msg, "exit status") || strings.Contains(msg, "signal"):
		return ErrorTypeExecution
	default:
		return ErrorTypeUnknown
	}
}
