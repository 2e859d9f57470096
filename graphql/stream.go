package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/tokens"
)

// Subprotocol is the WebSocket subprotocol spoken by the streaming channel
// (subscriptions-transport-ws).
const Subprotocol = "graphql-ws"

// graphql-ws message types
const (
	msgConnectionInit      = "connection_init"
	msgConnectionAck       = "connection_ack"
	msgConnectionError     = "connection_error"
	msgConnectionTerminate = "connection_terminate"
	msgKeepAlive           = "ka"
	msgStart               = "start"
	msgData                = "data"
	msgError               = "error"
	msgComplete            = "complete"
	msgStop                = "stop"
)

const writeWait = 10 * time.Second

var errIdle = errors.New("no active subscriptions")

// State of the streaming channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type initPayload struct {
	Headers map[string]string `json:"headers,omitempty"`
}

type streamConfig struct {
	url         string
	store       tokens.Store
	dialer      *websocket.Dialer
	newBackOff  func() backoff.BackOff
	refresher   Refresher
	ackTimeout  time.Duration
	idleTimeout time.Duration
	logger      zerolog.Logger
}

// streamChannel multiplexes subscriptions over one graphql-ws connection. The
// connection is opened with the first subscription, re-established with
// backoff while any subscription is active, and dropped when the last ends.
type streamChannel struct {
	streamConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	subs    map[string]*Subscription
	running bool
	closed  bool
}

func newStreamChannel(cfg streamConfig) *streamChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &streamChannel{
		streamConfig: cfg,
		ctx:          ctx,
		cancel:       cancel,
		subs:         make(map[string]*Subscription),
	}
}

func (s *streamChannel) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *streamChannel) subscribe(ctx context.Context, op Operation) (*Subscription, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}

	sub := newSubscription(uuid.NewString(), op, s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrTransportClosed
	}
	s.subs[sub.id] = sub
	switch {
	case !s.running:
		s.running = true
		s.wg.Add(1)
		go s.run()
	case s.state == StateStreaming:
		// On failure the reader sees the broken connection and start is re-sent after reconnecting.
		if err := s.write(wsMessage{ID: sub.id, Type: msgStart, Payload: payload}); err != nil {
			s.logger.Debug().Err(err).Str("id", sub.id).Msg("start deferred to reconnect")
		}
	}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *streamChannel) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.id]; !ok {
		return
	}
	delete(s.subs, sub.id)
	if s.state == StateStreaming {
		_ = s.write(wsMessage{ID: sub.id, Type: msgStop})
	}
	s.release()
}

// release hangs up once no subscription is left; run then settles on
// disconnected. Callers hold mu.
func (s *streamChannel) release() {
	if len(s.subs) > 0 || s.conn == nil {
		return
	}
	if s.state == StateStreaming {
		_ = s.write(wsMessage{Type: msgConnectionTerminate})
	}
	_ = s.conn.Close()
	s.conn = nil
}

func (s *streamChannel) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	if s.conn != nil {
		if s.state == StateStreaming {
			_ = s.write(wsMessage{Type: msgConnectionTerminate})
		}
		_ = s.conn.Close()
	}
	subs := s.subs
	s.subs = make(map[string]*Subscription)
	s.setState(StateClosed)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
	s.wg.Wait()
}

func (s *streamChannel) run() {
	defer s.wg.Done()

	b := s.newBackOff()
	first := true
	refreshed := false
	for {
		conn, err := s.connect(first)
		first = false
		if err == nil {
			b.Reset()
			refreshed = false
			err = s.read(conn)
			_ = conn.Close()
		}
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.conn = nil
		if len(s.subs) == 0 {
			s.running = false
			s.setState(StateDisconnected)
			s.mu.Unlock()
			return
		}
		s.setState(StateReconnecting)
		s.mu.Unlock()

		// A rejected token gets one refresh. A second rejection is terminal.
		if errors.Is(err, ErrConnectionRejected) {
			if s.refresher == nil || refreshed {
				s.fail(err)
				return
			}
			if _, rerr := s.refresher.Refresh(s.ctx); rerr != nil {
				s.fail(rerr)
				return
			}
			refreshed = true
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			s.fail(err)
			return
		}
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("graphql stream lost, reconnecting")

		select {
		case <-time.After(wait):
		case <-s.ctx.Done():
			return
		}

		s.mu.Lock()
		if len(s.subs) == 0 {
			s.running = false
			s.setState(StateDisconnected)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// connect dials, authenticates with the token currently in the store and
// re-sends start for every active subscription.
func (s *streamChannel) connect(first bool) (*websocket.Conn, error) {
	if first {
		s.mu.Lock()
		s.setState(StateConnecting)
		s.mu.Unlock()
	}

	access, err := s.store.Access(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, ErrTransportClosed
	}
	s.conn = conn
	s.mu.Unlock()

	if err := s.handshake(conn, access); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrTransportClosed
	}
	if len(s.subs) == 0 {
		s.release()
		return nil, errIdle
	}
	s.setState(StateStreaming)
	for id, sub := range s.subs {
		payload, err := json.Marshal(sub.op)
		if err != nil {
			continue
		}
		if err := s.write(wsMessage{ID: id, Type: msgStart, Payload: payload}); err != nil {
			// the reader will fail on the same connection
			break
		}
	}
	s.logger.Debug().Int("subscriptions", len(s.subs)).Msg("graphql stream connected")
	return conn, nil
}

func (s *streamChannel) handshake(conn *websocket.Conn, access string) error {
	var init initPayload
	if access != "" {
		init.Headers = map[string]string{"Authorization": "Bearer " + access}
	}
	payload, err := json.Marshal(init)
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsMessage{Type: msgConnectionInit, Payload: payload}); err != nil {
		return fmt.Errorf("send connection_init: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.ackTimeout))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("waiting for connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			_ = conn.SetReadDeadline(time.Time{})
			return nil
		case msgConnectionError:
			return fmt.Errorf("%w: %s", ErrConnectionRejected, payloadMessage(msg.Payload))
		}
	}
}

func (s *streamChannel) read(conn *websocket.Conn) error {
	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case msgKeepAlive:
		case msgData:
			sub := s.lookup(msg.ID)
			if sub == nil {
				continue
			}
			var resp Response
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				sub.deliver(Event{Err: fmt.Errorf("failed to decode data: %w", err)})
				continue
			}
			sub.deliver(Event{Response: &resp})
		case msgError:
			if sub := s.remove(msg.ID); sub != nil {
				sub.deliver(Event{Err: decodeErrors(msg.Payload)})
				sub.shutdown()
			}
		case msgComplete:
			if sub := s.remove(msg.ID); sub != nil {
				sub.shutdown()
			}
		case msgConnectionError:
			return fmt.Errorf("%w: %s", ErrConnectionRejected, payloadMessage(msg.Payload))
		default:
			s.logger.Debug().Str("type", msg.Type).Msg("ignoring graphql-ws message")
		}
	}
}

// fail ends every active subscription with err.
func (s *streamChannel) fail(err error) {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*Subscription)
	s.running = false
	s.setState(StateDisconnected)
	s.mu.Unlock()

	s.logger.Error().Err(err).Int("subscriptions", len(subs)).Msg("graphql stream gave up")
	for _, sub := range subs {
		sub.offer(Event{Err: err})
		sub.shutdown()
	}
}

func (s *streamChannel) lookup(id string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

func (s *streamChannel) remove(id string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subs[id]
	delete(s.subs, id)
	s.release()
	return sub
}

// write sends msg on the current connection. Callers hold mu.
func (s *streamChannel) write(msg wsMessage) error {
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

// setState records a transition. Callers hold mu. Closed is terminal.
func (s *streamChannel) setState(state State) {
	if s.state == StateClosed || s.state == state {
		return
	}
	s.logger.Debug().Stringer("from", s.state).Stringer("to", state).Msg("graphql stream state")
	s.state = state
}

func payloadMessage(raw json.RawMessage) string {
	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &withMessage); err == nil && withMessage.Message != "" {
		return withMessage.Message
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}

func decodeErrors(raw json.RawMessage) error {
	var list Errors
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list
	}
	var single Error
	if err := json.Unmarshal(raw, &single); err == nil && single.Message != "" {
		return single
	}
	return errors.New(payloadMessage(raw))
}
