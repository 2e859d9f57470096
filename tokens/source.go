package tokens

import (
	"context"
	"fmt"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned by the TokenSource when the store holds no access token.
var ErrNoAccessToken = sessionerrors.ErrNoAccessToken

// TokenSource adapts a Store to oauth2.TokenSource. The store is read on every
// call so a refreshed token is picked up without rebuilding any client.
type TokenSource struct {
	ctx   context.Context
	store Store
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

func NewTokenSource(ctx context.Context, store Store) *TokenSource {
	return &TokenSource{ctx: ctx, store: store}
}

func (ts *TokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.store.Access(ts.ctx)
	if err != nil {
		return nil, fmt.Errorf("[tokens Token] failed to read access token: %w", err)
	}
	if access == "" {
		return nil, ErrNoAccessToken
	}
	refresh, err := ts.store.Refresh(ts.ctx)
	if err != nil {
		return nil, fmt.Errorf("[tokens Token] failed to read refresh token: %w", err)
	}

	// No Expiry: validity is decided by the server, expiry is handled by refresh-on-401.
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}
