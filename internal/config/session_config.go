package config

import "time"

type SessionConfig interface {
	GetLoginRoute() string
	GetLandingRoute() string
	GetPublicRoutes() []string
	GetRefreshInterval() time.Duration
}

type Session struct {
	values source
}

var _ SessionConfig = Session{}

func (s Session) GetLoginRoute() string {
	return s.values.get("LOGIN_ROUTE", "/login")
}

func (s Session) GetLandingRoute() string {
	return s.values.get("LANDING_ROUTE", "/dashboard")
}

// GetPublicRoutes returns the comma separated PUBLIC_ROUTES allow-list
func (s Session) GetPublicRoutes() []string {
	return s.values.list("PUBLIC_ROUTES", "/login")
}

func (s Session) GetRefreshInterval() time.Duration {
	return s.values.duration("REFRESH_INTERVAL", 60*time.Second)
}
