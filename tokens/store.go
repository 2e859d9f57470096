package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnreadable is returned by stores whose persisted pair exists but cannot
// be decoded. Callers treat it as no session.
var ErrUnreadable = errors.New("stored tokens are unreadable")

// Storage keys used by every Store implementation.
const (
	AccessKey  = "access"
	RefreshKey = "refresh"
)

// Pair is the session's bearer credentials as issued by the authentication service.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether either token is missing, the canonical "logged out" signal.
func (p Pair) Empty() bool {
	return strings.TrimSpace(p.Access) == "" || strings.TrimSpace(p.Refresh) == ""
}

// Store is the single source of truth for the session's two bearer tokens.
// A missing token is reported as an empty string with a nil error.
type Store interface {
	Access(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	// Set replaces both tokens. Subsequent reads observe the new pair.
	Set(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

// Load reads both tokens from the store.
func Load(ctx context.Context, s Store) (Pair, error) {
	access, err := s.Access(ctx)
	if err != nil {
		return Pair{}, fmt.Errorf("[tokens Load] failed to read access token: %w", err)
	}
	refresh, err := s.Refresh(ctx)
	if err != nil {
		return Pair{}, fmt.Errorf("[tokens Load] failed to read refresh token: %w", err)
	}
	return Pair{Access: access, Refresh: refresh}, nil
}
