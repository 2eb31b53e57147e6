package httpapi

import (
	"encoding/json"
	"fmt"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// APIError is the error part of an envelope. Status is the HTTP status
// the client saw and is not serialized.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes.
const (
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeNotFound       = "NOT_FOUND"
	ErrorCodeInternal       = "INTERNAL_ERROR"
	ErrorCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

func success(data any) envelope {
	return envelope{Success: true, Data: data}
}

func failure(code, message string) envelope {
	return envelope{Error: &APIError{Code: code, Message: message}}
}
