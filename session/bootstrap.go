package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/claims"
	"github.com/jrsteele09/go-session-client/tokens"
)

// Routes tells the bootstrapper where unauthenticated and freshly
// authenticated users belong.
type Routes struct {
	Login   string
	Landing string
	// Public paths are reachable without a session. An entry ending in "/*"
	// matches every path below it. The login route is always public.
	Public []string
}

func DefaultRoutes() Routes {
	return Routes{Login: "/login", Landing: "/dashboard", Public: []string{"/login"}}
}

// Decision is the outcome of reconciling a route with the stored session.
// An empty Redirect means stay on the requested path.
type Decision struct {
	Redirect string
	LoggedIn bool
}

type BootstrapOption func(*Bootstrapper)

// WithDecoder replaces the default unverified claims decoder.
func WithDecoder(d claims.Decoder) BootstrapOption {
	return func(b *Bootstrapper) {
		b.decoder = d
	}
}

func WithRoutes(r Routes) BootstrapOption {
	return func(b *Bootstrapper) {
		b.routes = r
	}
}

// WithRefreshTask lets Navigate run task while the user is logged in.
func WithRefreshTask(task *RefreshTask) BootstrapOption {
	return func(b *Bootstrapper) {
		b.task = task
	}
}

func WithLogger(logger zerolog.Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		b.logger = logger
	}
}

// Bootstrapper derives the session state from the token store whenever the
// user lands on a route.
type Bootstrapper struct {
	store     tokens.Store
	container *Container
	decoder   claims.Decoder
	routes    Routes
	task      *RefreshTask
	logger    zerolog.Logger
}

func NewBootstrapper(store tokens.Store, container *Container, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		store:     store,
		container: container,
		decoder:   claims.UnverifiedDecoder{},
		routes:    DefaultRoutes(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Reconcile brings the state in line with the stored tokens and decides
// whether path may be shown.
func (b *Bootstrapper) Reconcile(ctx context.Context, path string) (Decision, error) {
	pair, err := tokens.Load(ctx, b.store)
	if errors.Is(err, tokens.ErrUnreadable) {
		b.logger.Warn().Err(err).Msg("discarding unreadable token store")
		return b.loggedOut(ctx, path)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("[session Reconcile] %w", err)
	}
	if pair.Empty() {
		return b.loggedOut(ctx, path)
	}

	c, err := b.decoder.Decode(ctx, pair.Access)
	if err != nil {
		// an unreadable token is no session at all
		b.logger.Warn().Err(err).Msg("discarding unreadable access token")
		return b.loggedOut(ctx, path)
	}

	b.container.Dispatch(SetAuthState{Payload: LoggedIn(c.Identity)})
	d := Decision{LoggedIn: true}
	if samePath(path, b.routes.Login) {
		d.Redirect = b.routes.Landing
	}
	return d, nil
}

// Navigate reconciles path and starts or stops the refresh task so that it
// runs exactly while a logged in user is off the login route. The task is
// not bound to ctx; Stop ends it.
func (b *Bootstrapper) Navigate(ctx context.Context, path string) (Decision, error) {
	d, err := b.Reconcile(ctx, path)
	if err != nil {
		return d, err
	}
	if b.task == nil {
		return d, nil
	}

	target := path
	if d.Redirect != "" {
		target = d.Redirect
	}
	if d.LoggedIn && !samePath(target, b.routes.Login) {
		b.task.Start(context.WithoutCancel(ctx))
	} else {
		b.task.Stop()
	}
	return d, nil
}

// IsPublic reports whether path is reachable without a session.
func (b *Bootstrapper) IsPublic(path string) bool {
	if samePath(path, b.routes.Login) {
		return true
	}
	for _, p := range b.routes.Public {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if samePath(path, prefix) || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if samePath(path, p) {
			return true
		}
	}
	return false
}

func (b *Bootstrapper) loggedOut(ctx context.Context, path string) (Decision, error) {
	b.container.Dispatch(Logout{})
	if err := b.store.Clear(ctx); err != nil {
		return Decision{}, fmt.Errorf("[session Reconcile] failed to clear tokens: %w", err)
	}
	if b.IsPublic(path) {
		return Decision{}, nil
	}
	return Decision{Redirect: b.routes.Login}, nil
}

func samePath(a, b string) bool {
	return normalise(a) == normalise(b)
}

func normalise(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
