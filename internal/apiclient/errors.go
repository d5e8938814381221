package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork marks transport failures where no response was received
	ErrNetwork = errors.New("network error")

	// ErrUnauthorized matches 401 and 403 responses
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("not found")

	// ErrRejected matches every other 4xx response
	ErrRejected = errors.New("request rejected")

	// ErrServer matches 5xx responses
	ErrServer = errors.New("server error")
)

const (
	msgServer  = "The server encountered an error. Please try again later."
	msgNetwork = "Unable to reach the server. Check your connection and try again."
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, detail)
}

// Is classifies the error by status code
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRejected:
		return e.StatusCode >= 400 && e.StatusCode < 500 &&
			e.StatusCode != http.StatusUnauthorized &&
			e.StatusCode != http.StatusForbidden &&
			e.StatusCode != http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// Message returns text suitable for showing to the user
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return msgServer
		}
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return http.StatusText(apiErr.StatusCode)
	}
	if errors.Is(err, ErrNetwork) {
		return msgNetwork
	}
	return err.Error()
}

// StatusCode returns the HTTP status of an *APIError, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type fieldDetail struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Method: method, Path: path}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		return e
	}
	if eb.Error != "" {
		e.Detail = eb.Error
	}
	if len(eb.Detail) == 0 {
		return e
	}

	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err == nil {
		e.Detail = detail
		return e
	}

	var fields []fieldDetail
	if err := json.Unmarshal(eb.Detail, &fields); err == nil {
		e.Fields = make(map[string]string, len(fields))
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			name := ""
			if len(f.Loc) > 0 {
				name = fmt.Sprint(f.Loc[len(f.Loc)-1])
			}
			e.Fields[name] = f.Msg
			if name != "" {
				msgs = append(msgs, name+": "+f.Msg)
			} else {
				msgs = append(msgs, f.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
	}
	return e
}
