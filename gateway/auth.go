package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/restclient"
	"github.com/jrsteele09/go-session-client/tokens"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type passwordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type apiTokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token pair and stores it. The call is
// anonymous so a rejected login never triggers a refresh.
func (g *Gateway) Login(ctx context.Context, username, password string) (tokens.Pair, error) {
	if username == "" || password == "" {
		return tokens.Pair{}, fmt.Errorf("[gateway Login] %w: username and password are required", ErrInvalidCredentials)
	}

	var out tokenPairResponse
	_, err := g.client.DoJSON(restclient.WithoutAuth(ctx), http.MethodPost, TokenPath, credentials{Username: username, Password: password}, &out)
	if err != nil {
		var se *restclient.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			return tokens.Pair{}, fmt.Errorf("[gateway Login] %w", ErrInvalidCredentials)
		}
		return tokens.Pair{}, fmt.Errorf("[gateway Login] %w", err)
	}

	pair := tokens.Pair{Access: out.Access, Refresh: out.Refresh}
	if pair.Empty() {
		return tokens.Pair{}, fmt.Errorf("[gateway Login] %w: token pair incomplete", sessionerrors.ErrInvalidToken)
	}
	if err := g.client.Store().Set(ctx, pair); err != nil {
		return tokens.Pair{}, fmt.Errorf("[gateway Login] failed to store tokens: %w", err)
	}

	g.logger.Info().Str("username", username).Msg("logged in")
	return pair, nil
}

// Logout forgets the session. The server side keeps no session state to end.
func (g *Gateway) Logout(ctx context.Context) error {
	if err := g.client.Store().Clear(ctx); err != nil {
		return fmt.Errorf("[gateway Logout] %w", err)
	}
	g.logger.Info().Msg("logged out")
	return nil
}

func (g *Gateway) UpdatePassword(ctx context.Context, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("[gateway UpdatePassword] %w: both passwords are required", sessionerrors.ErrInvalidRequest)
	}
	if _, err := g.client.DoJSON(ctx, http.MethodPost, UpdatePasswordPath, passwordChange{OldPassword: oldPassword, NewPassword: newPassword}, nil); err != nil {
		return fmt.Errorf("[gateway UpdatePassword] %w", err)
	}
	return nil
}

// VerifyToken asks the authentication service whether token is still valid.
// A rejected token is (false, nil).
func (g *Gateway) VerifyToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, err := g.client.DoJSON(restclient.WithoutAuth(ctx), http.MethodPost, VerifyPath, verifyRequest{Token: token}, nil)
	if err != nil {
		var se *restclient.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			return false, nil
		}
		return false, fmt.Errorf("[gateway VerifyToken] %w", err)
	}
	return true, nil
}

// ObtainAPIToken issues a long lived API token for the current user.
func (g *Gateway) ObtainAPIToken(ctx context.Context) (string, error) {
	var out apiTokenResponse
	if _, err := g.client.DoJSON(ctx, http.MethodPost, ObtainPath, struct{}{}, &out); err != nil {
		return "", fmt.Errorf("[gateway ObtainAPIToken] %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("[gateway ObtainAPIToken] %w: empty token", sessionerrors.ErrInvalidToken)
	}
	return out.Token, nil
}
