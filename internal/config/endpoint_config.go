package config

import "time"

type EndpointConfig interface {
	GetAPIBaseURL() string
	GetGraphQLURL() string
	GetGraphQLWSURL() string
	GetHTTPTimeout() time.Duration
	GetJWKSURL() string
}

type Endpoints struct {
	values source
}

var _ EndpointConfig = Endpoints{}

// GetAPIBaseURL returns the REST gateway base URL (e.g., "https://api.example.com")
func (e Endpoints) GetAPIBaseURL() string {
	return e.values.get("API_BASE_URL", "http://localhost:8000")
}

func (e Endpoints) GetGraphQLURL() string {
	return e.values.get("GQL_URL", "http://localhost:8080/v1/graphql")
}

func (e Endpoints) GetGraphQLWSURL() string {
	return e.values.get("GQL_WS_URL", "ws://localhost:8080/v1/graphql")
}

func (e Endpoints) GetHTTPTimeout() time.Duration {
	return e.values.duration("HTTP_TIMEOUT", 30*time.Second)
}

// GetJWKSURL returns the key set used to verify access tokens. Empty disables verification.
func (e Endpoints) GetJWKSURL() string {
	return e.values.get("JWKS_URL", "")
}
