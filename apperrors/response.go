package apperrors

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody carries the error kind and message sent to clients.
type ErrorBody struct {
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError into its wire form.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Kind:      e.Kind,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// From maps any error onto an AppError, treating unknown errors as internal.
func From(err error) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(err)
}
