package claims

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier checks the access token signature against a JWKS endpoint before
// decoding it. Used when the deployment publishes its signing keys.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Decoder = (*Verifier)(nil)

// NewVerifier builds a Verifier. An empty issuer disables the issuer check.
// ctx is used for key fetches and must outlive the Verifier.
func NewVerifier(ctx context.Context, jwksURL, issuer string) *Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &Verifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			SkipClientIDCheck:    true,
			SkipIssuerCheck:      issuer == "",
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
			Now:                  NowTimeFunc,
		}),
	}
}

func (v *Verifier) Decode(ctx context.Context, rawToken string) (*Claims, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var c accessClaims
	if err := token.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c.toClaims(), nil
}
