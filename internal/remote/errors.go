package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMessage is shown when nothing better can be extracted from an error.
const DefaultMessage = "Não foi possível concluir a operação"

// Error is a non-2xx response from the remote API.
type Error struct {
	StatusCode int
	Detail     string
	Message    string
	Title      string
	Body       string
}

func (e *Error) Error() string {
	msg := e.userMessage()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, msg)
}

// userMessage returns the first of detail, message and title that is present.
func (e *Error) userMessage() string {
	for _, s := range []string{e.Detail, e.Message, e.Title} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// newError builds an Error from a response body. API Platform bodies use
// both plain and "hydra:" prefixed keys.
func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Body: string(body)}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := payload[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	e.Detail = pick("detail", "hydra:description")
	e.Message = pick("message", "error")
	e.Title = pick("title", "hydra:title")
	return e
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// Message extracts the most human-readable text from err: the response
// body's detail, message or title, else the error text, else fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		if msg := e.userMessage(); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
