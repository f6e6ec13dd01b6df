// Package models defines shared data structures for ganalytics.
//
// It contains the session snapshot handed to the event encoder, the request
// and response types of the HTTP ingestion API, and the standard API response
// envelope.
package models

import "errors"

// Validation errors for incoming track requests.
var (
	ErrMissingCategory = errors.New("event category is required")
	ErrMissingAction   = errors.New("event action is required")
)

// SessionSnapshot is an immutable view of the session counters at the moment
// an event is encoded. All epoch fields are Unix seconds.
type SessionSnapshot struct {
	CookieID     int   `json:"cookie_id"`
	FirstRun     int64 `json:"first_run"`
	LastRun      int64 `json:"last_run"`
	SessionStart int64 `json:"session_start"`
	Visits       int   `json:"visits"`
}

// TrackViewRequest is the body of POST /track/view.
type TrackViewRequest struct {
	Page string `json:"page"`
}

// TrackEventRequest is the body of POST /track/event. Label and Value are
// optional; a nil Value is omitted from the encoded event entirely.
type TrackEventRequest struct {
	Page     string `json:"page"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Label    string `json:"label,omitempty"`
	Value    *int   `json:"value,omitempty"`
}

// Validate checks that the required event fields are present.
func (r TrackEventRequest) Validate() error {
	if r.Category == "" {
		return ErrMissingCategory
	}
	if r.Action == "" {
		return ErrMissingAction
	}
	return nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	QueueLength int             `json:"queue_length"`
	Draining    bool            `json:"draining"`
	LastSendOK  bool            `json:"last_send_ok"`
	Session     SessionSnapshot `json:"session"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates an event was accepted for transmission.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Recorded creates an API response for an accepted telemetry event.
func Recorded() APIResponse {
	return APIResponse{Status: string(APIStatusRecorded)}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
