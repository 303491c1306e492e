package agent

import "fmt"

// UnknownToolError is returned when the model requests a tool that is not
// registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// ToolExecutionError wraps a failure from a tool implementation, identifying
// the tool and the underlying cause.
type ToolExecutionError struct {
	Name  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Cause
}

// ToolInputError is a ToolExecutionError cause produced when the invocation
// payload does not satisfy the tool's declared schema.
type ToolInputError struct {
	Name  string
	Cause error
}

func (e *ToolInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %s: %v", e.Name, e.Cause)
}

func (e *ToolInputError) Unwrap() error {
	return e.Cause
}
