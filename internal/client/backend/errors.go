package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/common"
)

// APIError is a non-success response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the response onto a sentinel from internal/common.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "invalid_grant" || e.Code == "invalid_credentials":
		return common.ErrInvalidCredentials
	case e.Code == "PGRST116":
		return common.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return common.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound, e.StatusCode == http.StatusNotAcceptable:
		return common.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return common.ErrAlreadyExists
	case e.StatusCode >= 500:
		return common.ErrUnavailable
	default:
		return nil
	}
}

// errorBody covers the error shapes of the auth (GoTrue) and rows (PostgREST)
// endpoints.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	e.Code = firstNonEmpty(eb.ErrorCode, eb.Error)
	if s, ok := eb.Code.(string); ok && e.Code == "" {
		e.Code = s
	}
	e.Message = firstNonEmpty(eb.ErrorDescription, eb.Msg, eb.Message, eb.Error, http.StatusText(status))
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
