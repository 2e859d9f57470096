package restclient

import (
	"errors"
	"fmt"
	"net/http"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
)

var (
	// ErrRefreshFailed means the session is gone: the store has been cleared
	// and the user must authenticate again.
	ErrRefreshFailed = sessionerrors.ErrRefreshFailed
	ErrInvalidURL    = errors.New("invalid base url")
)

// StatusError is returned by DoJSON for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unauthorized reports whether the call failed authentication even after a refresh.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a StatusError carrying a 401.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Unauthorized()
}
