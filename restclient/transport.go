package restclient

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/tokens"
)

const requestIDHeader = "X-Request-ID"

// authTransport attaches the bearer token to every request and, on a 401,
// refreshes once and replays the request with the new token.
type authTransport struct {
	base      http.RoundTripper
	store     tokens.Store
	refresher *Refresher
	logger    zerolog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req.Clone(ctx)
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	if anonymous(ctx) {
		return t.base.RoundTrip(out)
	}

	access, err := t.store.Access(ctx)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	if access != "" {
		out.Header.Set("Authorization", bearerValue+access)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || Retried(ctx) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		t.logger.Warn().Str("path", req.URL.Path).Msg("401 on a request whose body cannot be replayed")
		return resp, nil
	}

	newAccess, err := t.refresher.Refresh(ctx)
	if err != nil {
		// The original 401 is what the caller sees; the store is already cleared.
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retryCtx := markRetried(ctx)
	retry := req.Clone(retryCtx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set(requestIDHeader, out.Header.Get(requestIDHeader))
	retry.Header.Set("Authorization", bearerValue+newAccess)

	t.logger.Debug().Str("path", req.URL.Path).Msg("retrying request with refreshed token")
	return t.base.RoundTrip(retry)
}
