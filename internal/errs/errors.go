package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes a tool adapter may report.
// Adapters map vendor errors to a Kind at the library boundary so the
// orchestrator never inspects error message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindCorrupted
	KindTimeout
	KindOutOfMemory
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindCorrupted:
		return "corrupted"
	case KindTimeout:
		return "timeout"
	case KindOutOfMemory:
		return "out_of_memory"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ToolError carries a classified vendor failure out of a tool routine.
type ToolError struct {
	Kind Kind
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Classify wraps err with the given kind. A nil err returns nil.
func Classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Kind: kind, Err: err}
}

// Error codes observed by callers of the processing pipeline.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeToolNotFound = "TOOL_NOT_FOUND"
	CodeCorrupted    = "CORRUPTED_FILE"
	CodeTimeout      = "TIMEOUT"
	CodeOutOfMemory  = "OUT_OF_MEMORY"
	CodeUnsupported  = "UNSUPPORTED"
	CodeProcessing   = "PROCESSING_ERROR"
)

// ProcessingError is the only error shape the pipeline returns to callers.
type ProcessingError struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Recoverable bool              `json:"recoverable"`
	Context     map[string]string `json:"context,omitempty"`
	cause       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.cause
}

// NewValidation builds a recoverable validation failure from collected
// validation messages.
func NewValidation(msg string, ctx map[string]string) *ProcessingError {
	return &ProcessingError{
		Code:        CodeValidation,
		Message:     msg,
		Recoverable: true,
		Context:     ctx,
	}
}

// NewToolNotFound reports an unknown tool identifier. Not recoverable: the
// identifier comes from the caller, not from user input.
func NewToolNotFound(toolID string) *ProcessingError {
	return &ProcessingError{
		Code:        CodeToolNotFound,
		Message:     fmt.Sprintf("unknown tool: %s", toolID),
		Recoverable: false,
		Context:     map[string]string{"tool": toolID},
	}
}

// Wrap converts a tool-routine failure into a ProcessingError. Classified
// ToolErrors map onto the curated code set; everything else becomes a
// generic, recoverable processing failure.
func Wrap(err error, ctx map[string]string) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe
	}

	code := CodeProcessing
	msg := "file processing failed, please try again"
	recoverable := true

	var te *ToolError
	switch {
	case errors.As(err, &te):
		switch te.Kind {
		case KindCorrupted:
			code = CodeCorrupted
			msg = "the file appears to be corrupted or unreadable"
		case KindTimeout:
			code = CodeTimeout
			msg = "processing took too long, please try a smaller file"
		case KindOutOfMemory:
			code = CodeOutOfMemory
			msg = "the file is too large to process"
			recoverable = false
		case KindUnsupported:
			code = CodeUnsupported
			msg = "this file or option is not supported"
			recoverable = false
		}
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
		msg = "processing took too long, please try a smaller file"
	case errors.Is(err, context.Canceled):
		msg = "processing was cancelled"
	}

	return &ProcessingError{
		Code:        code,
		Message:     msg,
		Recoverable: recoverable,
		Context:     ctx,
		cause:       err,
	}
}
