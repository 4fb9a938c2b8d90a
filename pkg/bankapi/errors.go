package bankapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAccount is returned when the account lookup succeeds without an account payload.
	ErrNoAccount = errors.New("account not found for user")
	// ErrEmptyResponse is returned when a transaction POST succeeds with an empty body.
	ErrEmptyResponse = errors.New("empty response body")
	// ErrNoBalance is returned when the balance payload carries no amount.
	ErrNoBalance = errors.New("balance payload has no amount")
)

// APIError is a non-2xx answer from the backend. Message holds the backend's
// own explanation when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// messageFromBody extracts a human readable message from an error body.
// Accepted shapes: {"data": "..."}, a JSON string literal, or plain text.
// Any other JSON yields "" so callers fall back to their own wording.
func messageFromBody(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	switch body[0] {
	case '{':
		var env struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			if json.Valid(body) {
				return ""
			}
			break
		}
		return strings.TrimSpace(env.Data)
	case '[':
		if json.Valid(body) {
			return ""
		}
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(body))
}
