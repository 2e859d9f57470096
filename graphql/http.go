package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-session-client/tokens"
)

// codeInvalidJWT is the extensions.code Hasura answers with when the bearer
// token is expired or otherwise unusable.
const codeInvalidJWT = "invalid-jwt"

type httpChannel struct {
	url       string
	client    *http.Client
	refresher Refresher
}

func newHTTPChannel(url string, store tokens.Store, base http.RoundTripper, timeout time.Duration, refresher Refresher) *httpChannel {
	return &httpChannel{
		url: url,
		client: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				// Background: the source only reads the store, request contexts govern the call itself.
				Source: tokens.NewTokenSource(context.Background(), store),
				Base:   base,
			},
		},
		refresher: refresher,
	}
}

func (c *httpChannel) execute(ctx context.Context, op Operation) (*Response, error) {
	resp, status, err := c.post(ctx, op)
	if err != nil {
		return nil, err
	}
	if c.refresher == nil || !expiredToken(status, resp) {
		if status < 200 || status > 299 {
			return nil, &HTTPError{StatusCode: status, Body: resp.raw}
		}
		return &resp.Response, nil
	}

	// one refresh, one retry
	if _, err := c.refresher.Refresh(ctx); err != nil {
		return nil, err
	}
	resp, status, err = c.post(ctx, op)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &HTTPError{StatusCode: status, Body: resp.raw}
	}
	return &resp.Response, nil
}

type rawResponse struct {
	Response
	raw []byte
}

func (c *httpChannel) post(ctx context.Context, op Operation) (*rawResponse, int, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	out := &rawResponse{raw: data}
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		if err := json.Unmarshal(data, &out.Response); err != nil {
			return nil, res.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return out, res.StatusCode, nil
}

func expiredToken(status int, resp *rawResponse) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	for _, e := range resp.Errors {
		if e.Code() == codeInvalidJWT {
			return true
		}
	}
	return false
}
