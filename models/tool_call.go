package models

// ToolCall is a named, parameterized action requested by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is what a dispatched operation produced.
type ToolResult struct {
	Success bool           `json:"success"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ToolResponseBody is the model-visible part of a tool response.
type ToolResponseBody struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolResponse is the envelope returned to the caller for every tool call.
type ToolResponse struct {
	ToolResponse ToolResponseBody `json:"toolResponse"`
}

// Failed reports whether the response carries an error field.
func (r ToolResponse) Failed() bool {
	_, ok := r.ToolResponse.Response["error"]
	return ok
}

// ServiceResponse is the common reply shape of the network collaborators.
type ServiceResponse struct {
	Status  string `json:"status"`
	Output  string `json:"output,omitempty"`
	Message string `json:"message,omitempty"`
}

// BestEffort reports the outcome of a side effect whose failure must never
// fail the operation that triggered it.
type BestEffort struct {
	Attempted bool
	Err       error
}
