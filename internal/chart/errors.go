package chart

import "fmt"

// APIError reports a rejected chart request: an HTTP failure or a non-zero
// rt_cd in the response envelope.
type APIError struct {
	StatusCode int
	Code       string // msg_cd from the envelope, empty for transport-level failures
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chart api: %s %s (http %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("chart api: http %d %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed if repeated: server
// errors, and the gateway's rate-limit rejection.
func (e *APIError) Retryable() bool {
	if e.StatusCode >= 500 {
		return true
	}
	return e.Code == "EGW00201"
}
