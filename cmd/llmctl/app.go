package main

import (
	"context"
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/claims"
	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/graphql"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/logging"
	"github.com/jrsteele09/go-session-client/restclient"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/tokens"
	"github.com/jrsteele09/go-session-client/tokens/filestore"
	"github.com/jrsteele09/go-session-client/tokens/redisstore"
)

// app is everything a command needs, wired from configuration.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	store     tokens.Store
	rest      *restclient.Client
	gateway   *gateway.Gateway
	gql       *graphql.Transport
	container *session.Container
	boot      *session.Bootstrapper
	task      *session.RefreshTask
	closers   []func() error
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logging.NewWithWriter(logOut, cfg.GetLogLevel(), cfg.GetEnv()),
		container: session.NewContainer(),
	}

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.rest, err = restclient.New(cfg.GetAPIBaseURL(), store,
		restclient.WithTimeout(cfg.GetHTTPTimeout()),
		restclient.WithLogger(a.logger.With().Str("component", "rest").Logger()),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.gateway = gateway.New(a.rest, gateway.WithLogger(a.logger.With().Str("component", "gateway").Logger()))

	a.gql, err = graphql.New(cfg.GetGraphQLURL(), cfg.GetGraphQLWSURL(), store,
		graphql.WithTimeout(cfg.GetHTTPTimeout()),
		graphql.WithRefresher(a.rest.Refresher()),
		graphql.WithLogger(a.logger.With().Str("component", "graphql").Logger()),
		graphql.WithSuppressMutationErrors(func(op graphql.Operation, errs []graphql.Error) {
			a.logger.Warn().Str("operation", op.OperationName).Err(graphql.Errors(errs)).Msg("mutation failed")
		}),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.gql.Close)

	a.task = session.NewRefreshTask(a.rest.Refresher(), a.container,
		session.WithInterval(cfg.GetRefreshInterval()),
		session.WithTaskLogger(a.logger.With().Str("component", "refresh").Logger()),
	)
	a.boot = session.NewBootstrapper(store, a.container,
		session.WithDecoder(a.newDecoder(ctx)),
		session.WithRoutes(session.Routes{
			Login:   cfg.GetLoginRoute(),
			Landing: cfg.GetLandingRoute(),
			Public:  cfg.GetPublicRoutes(),
		}),
		session.WithRefreshTask(a.task),
		session.WithLogger(a.logger.With().Str("component", "session").Logger()),
	)
	return a, nil
}

func (a *app) newStore(ctx context.Context) (tokens.Store, error) {
	switch kind := a.cfg.GetTokenStore(); kind {
	case config.StoreMemory:
		return tokens.NewInMemoryStore(), nil
	case config.StoreFile:
		var opts []filestore.Option
		if p := a.cfg.GetTokenPassphrase(); p != "" {
			opts = append(opts, filestore.WithPassphrase(p))
		}
		a.logger.Debug().Str("path", a.cfg.GetTokenFile()).Bool("sealed", len(opts) > 0).Msg("using file token store")
		return filestore.New(a.cfg.GetTokenFile(), opts...), nil
	case config.StoreRedis:
		s, err := redisstore.Open(ctx, a.cfg.GetRedisAddr(), a.cfg.GetRedisPassword(), a.cfg.GetRedisDB(), a.cfg.GetRedisKeyPrefix())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q (want %s, %s or %s)", kind, config.StoreMemory, config.StoreFile, config.StoreRedis)
	}
}

func (a *app) newDecoder(ctx context.Context) claims.Decoder {
	if url := a.cfg.GetJWKSURL(); url != "" {
		return claims.NewVerifier(ctx, url, "")
	}
	return claims.UnverifiedDecoder{}
}

func (a *app) Close() {
	if a.task != nil {
		a.task.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func printBanner(w io.Writer, appName string) {
	fig := figure.NewFigure(appName, "cybermedium", true)
	fmt.Fprintln(w, fig.String())
}
