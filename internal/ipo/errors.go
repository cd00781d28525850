package ipo

import "fmt"

// AuthError indicates the appliance rejected the management credentials, or
// accepted them without handing back a usable session.
type AuthError struct {
	Status      int
	ContentType string
	Body        string
	Reason      string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("appliance authenticate failed: %s", e.Reason)
	}
	return fmt.Sprintf("appliance authenticate failed (%d, %s): %s", e.Status, e.ContentType, e.Body)
}

// RequestError indicates a resource call failed: a non-2xx upstream status,
// or a request refused before any network I/O (protected identity guard).
type RequestError struct {
	Status int
	Body   string
	Reason string
}

func (e *RequestError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("appliance request refused: %s", e.Reason)
	}
	return fmt.Sprintf("appliance request failed (%d): %s", e.Status, e.Body)
}
