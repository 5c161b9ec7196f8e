package core

// Endpoint is a framework-agnostic route description.
//
// Handlers are supplied by HTTP adapters and looked up by OperationID.
type Endpoint struct {
	Path     string
	Method   string
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	// Protected endpoints sit behind the request guard
	Protected bool
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}
