package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gosuda/planboard/internal/domain"
)

// Error is a non-2xx backend response that does not map to a domain sentinel.
// Message is the backend's human-readable reason.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

const maxErrorBody = 64 << 10

// responseError converts a failed response into an error. 401, 403, 404 and
// 409 wrap the matching domain sentinel.
func responseError(op string, resp *http.Response) error {
	msg := readMessage(resp)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusConflict:
		sentinel = domain.ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, &Error{Status: resp.StatusCode, Message: msg})
	}
	return fmt.Errorf("%s: %s: %w", op, msg, sentinel)
}

func readMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		for _, s := range []string{body.Message, body.Detail, body.Error, body.Title} {
			if s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(data)); s != "" && !strings.HasPrefix(s, "{") && len(s) < 200 {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
