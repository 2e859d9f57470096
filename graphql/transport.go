package graphql

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/tokens"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultAckTimeout  = 10 * time.Second
	defaultIdleTimeout = 30 * time.Second
)

// Refresher renews the session's access token. *restclient.Refresher satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Channel names the wire an operation travels on.
type Channel string

const (
	ChannelHTTP   Channel = "http"
	ChannelStream Channel = "stream"
)

// MutationErrorHook receives the errors of a mutation whose errors are suppressed.
type MutationErrorHook func(op Operation, errs []Error)

type options struct {
	base        http.RoundTripper
	timeout     time.Duration
	dialer      *websocket.Dialer
	newBackOff  func() backoff.BackOff
	refresher   Refresher
	suppress    MutationErrorHook
	ackTimeout  time.Duration
	idleTimeout time.Duration
	logger      zerolog.Logger
}

type Option func(*options)

// WithTransport sets the HTTP channel's underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithBackOff sets the reconnect policy of the streaming channel. The
// default is exponential backoff that gives up after 15 minutes.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackOff = newBackOff
	}
}

// WithRefresher lets both channels renew an expired access token once before
// giving up: HTTP on 401 or an invalid-jwt error, the stream on connection_error.
func WithRefresher(r Refresher) Option {
	return func(o *options) {
		o.refresher = r
	}
}

// WithSuppressMutationErrors hands mutation errors to hook and strips them from
// the response. Query errors are always returned to the caller.
func WithSuppressMutationErrors(hook MutationErrorHook) Option {
	return func(o *options) {
		o.suppress = hook
	}
}

func WithAckTimeout(d time.Duration) Option {
	return func(o *options) {
		o.ackTimeout = d
	}
}

// WithIdleTimeout sets how long the stream may stay silent before it is
// considered dead. Zero disables the check.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Transport routes operations to the HTTP or the streaming channel by kind.
type Transport struct {
	http     *httpChannel
	stream   *streamChannel
	suppress MutationErrorHook
	logger   zerolog.Logger
}

// New creates a Transport. wsURL may be empty, in which case Subscribe fails
// with ErrNoStreamEndpoint.
func New(httpURL, wsURL string, store tokens.Store, opts ...Option) (*Transport, error) {
	if httpURL == "" {
		return nil, fmt.Errorf("[graphql New] http endpoint is required")
	}

	o := options{
		base:        http.DefaultTransport,
		timeout:     defaultTimeout,
		newBackOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		ackTimeout:  defaultAckTimeout,
		idleTimeout: defaultIdleTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = &websocket.Dialer{HandshakeTimeout: o.ackTimeout}
	}
	dialer := *o.dialer
	dialer.Subprotocols = []string{Subprotocol}

	t := &Transport{
		http:     newHTTPChannel(httpURL, store, o.base, o.timeout, o.refresher),
		suppress: o.suppress,
		logger:   o.logger,
	}
	if wsURL != "" {
		t.stream = newStreamChannel(streamConfig{
			url:         wsURL,
			store:       store,
			dialer:      &dialer,
			newBackOff:  o.newBackOff,
			refresher:   o.refresher,
			ackTimeout:  o.ackTimeout,
			idleTimeout: o.idleTimeout,
			logger:      o.logger,
		})
	}
	return t, nil
}

// Route reports the channel op would travel on.
func (t *Transport) Route(op Operation) (Channel, error) {
	kind, err := KindOf(op)
	if err != nil {
		return "", err
	}
	if kind == KindSubscription {
		return ChannelStream, nil
	}
	return ChannelHTTP, nil
}

// Execute runs a query or mutation over HTTP. GraphQL errors are returned in
// Response.Errors, not as err.
func (t *Transport) Execute(ctx context.Context, op Operation) (*Response, error) {
	kind, err := KindOf(op)
	if err != nil {
		return nil, fmt.Errorf("[graphql Execute] %w", err)
	}
	if kind == KindSubscription {
		return nil, fmt.Errorf("[graphql Execute] %w", ErrSubscriptionRequiresStream)
	}

	resp, err := t.http.execute(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("[graphql Execute] %w", err)
	}

	if kind == KindMutation && t.suppress != nil && len(resp.Errors) > 0 {
		t.suppress(op, resp.Errors)
		resp.Errors = nil
	}
	if len(resp.Errors) > 0 {
		t.logger.Debug().Str("operation", op.OperationName).Int("errors", len(resp.Errors)).Msg("graphql errors")
	}
	return resp, nil
}

// Subscribe starts a subscription on the streaming channel. Cancelling ctx
// closes the subscription.
func (t *Transport) Subscribe(ctx context.Context, op Operation) (*Subscription, error) {
	kind, err := KindOf(op)
	if err != nil {
		return nil, fmt.Errorf("[graphql Subscribe] %w", err)
	}
	if kind != KindSubscription {
		return nil, fmt.Errorf("[graphql Subscribe] %w: got %s", ErrNotSubscription, kind)
	}
	if t.stream == nil {
		return nil, fmt.Errorf("[graphql Subscribe] %w", ErrNoStreamEndpoint)
	}

	sub, err := t.stream.subscribe(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("[graphql Subscribe] %w", err)
	}
	return sub, nil
}

// State reports the streaming channel's state.
func (t *Transport) State() State {
	if t.stream == nil {
		return StateDisconnected
	}
	return t.stream.State()
}

// Close ends every subscription and the streaming connection. The HTTP
// channel stays usable.
func (t *Transport) Close() error {
	if t.stream != nil {
		t.stream.close()
	}
	return nil
}
