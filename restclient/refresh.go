package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/tokens"
)

// RefreshPath is the token refresh endpoint of the authentication service.
const RefreshPath = "/authenticate/api/token/refresh/"

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Refresher mints a new access token from the stored refresh token.
// Concurrent callers share one in-flight refresh.
type Refresher struct {
	endpoint string
	client   *http.Client
	store    tokens.Store
	logger   zerolog.Logger
	group    singleflight.Group
}

// NewRefresher creates a Refresher. client must not be the authenticating
// client returned by New, the refresh call carries its own credentials.
func NewRefresher(endpoint string, client *http.Client, store tokens.Store, logger zerolog.Logger) *Refresher {
	return &Refresher{
		endpoint: endpoint,
		client:   client,
		store:    store,
		logger:   logger,
	}
}

// Refresh returns a new access token, or an error wrapping ErrRefreshFailed in
// which case the store has been cleared. Refresh is never retried internally.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	// A caller giving up must not cancel the refresh other callers are waiting on.
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Refresher) refresh(ctx context.Context) (string, error) {
	access, err := r.exchange(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("token refresh failed, clearing session")
		if clearErr := r.store.Clear(ctx); clearErr != nil {
			r.logger.Error().Err(clearErr).Msg("failed to clear token store")
		}
		return "", fmt.Errorf("[restclient Refresh] %w: %v", ErrRefreshFailed, err)
	}
	r.logger.Debug().Msg("access token refreshed")
	return access, nil
}

func (r *Refresher) exchange(ctx context.Context) (string, error) {
	refresh, err := r.store.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refresh == "" {
		return "", sessionerrors.ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{Refresh: refresh})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerValue+refresh)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("refresh response has no access token")
	}
	if out.Refresh == "" {
		// rotation is optional on the server side
		out.Refresh = refresh
	}

	if err := r.store.Set(ctx, tokens.Pair{Access: out.Access, Refresh: out.Refresh}); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}
	return out.Access, nil
}
