package graphql

import (
	"errors"
	"fmt"
	"net/http"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
)

var (
	ErrInvalidOperation           = errors.New("invalid graphql operation")
	ErrSubscriptionRequiresStream = errors.New("subscriptions must use the streaming channel")
	ErrNotSubscription            = errors.New("only subscriptions can be streamed")
	ErrNoStreamEndpoint           = errors.New("no websocket endpoint configured")
	ErrConnectionRejected         = errors.New("websocket connection rejected")
	ErrTransportClosed            = errors.New("transport closed")
	ErrNoData                     = errors.New("response has no data")
	ErrNoAccessToken              = sessionerrors.ErrNoAccessToken
)

// HTTPError is returned by Execute when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graphql endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
