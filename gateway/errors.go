package gateway

import (
	"errors"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingMediaURL    = errors.New("response did not include a media url")
	ErrInvalidTask        = errors.New("invalid task request")
	ErrNotFound           = sessionerrors.ErrNotFound
)
