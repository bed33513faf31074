package tools

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a tool failure.
type ErrorCode string

const (
	ErrCodeNoProject            ErrorCode = "NO_PROJECT"
	ErrCodeNoSelection          ErrorCode = "NO_SELECTION"
	ErrCodeNoActiveFile         ErrorCode = "NO_ACTIVE_FILE"
	ErrCodeUnsupportedExtension ErrorCode = "UNSUPPORTED_EXTENSION"
	ErrCodeUnknownTool          ErrorCode = "UNKNOWN_TOOL"
	ErrCodeInvalidArguments     ErrorCode = "INVALID_ARGUMENTS"
	ErrCodeServiceFailed        ErrorCode = "SERVICE_FAILED"
)

// ToolError is a precondition or service failure with a stable code.
type ToolError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is matches any ToolError carrying the same code.
func (e *ToolError) Is(target error) bool {
	t, ok := target.(*ToolError)
	return ok && t.Code == e.Code
}

var (
	ErrNoProject = &ToolError{Code: ErrCodeNoProject, Message: "No project folder is open"}

	ErrNoSelection = &ToolError{
		Code:    ErrCodeNoSelection,
		Message: "No text is selected in the editor. Select the text to replace first",
	}

	ErrNoActiveFile = &ToolError{Code: ErrCodeNoActiveFile, Message: "No file is currently open in the editor"}

	ErrUnsupportedExtension = &ToolError{
		Code:    ErrCodeUnsupportedExtension,
		Message: "analyze_code only supports .js files. Use read_file for other file types",
	}

	// ErrUnknownTool matches every unknown tool error regardless of name.
	ErrUnknownTool = &ToolError{Code: ErrCodeUnknownTool, Message: "Unknown tool"}
)

func unknownTool(name string) error {
	return &ToolError{Code: ErrCodeUnknownTool, Message: "Unknown tool: " + name}
}

func invalidArguments(name Name, err error) error {
	return &ToolError{Code: ErrCodeInvalidArguments, Message: fmt.Sprintf("invalid arguments for %s", name), Cause: err}
}

func serviceFailed(message string) error {
	return &ToolError{Code: ErrCodeServiceFailed, Message: message}
}

// GetCode returns the code of the first ToolError in err's chain.
func GetCode(err error) ErrorCode {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
