package restclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/restclient"
	"github.com/jrsteele09/go-session-client/tokens"
)

// fakeGateway accepts "Bearer <valid>" on /protected and rotates tokens on refresh.
type fakeGateway struct {
	mu            sync.Mutex
	valid         string
	refreshStatus int
	refreshDelay  time.Duration
	refreshCalls  atomic.Int32
	protected     atomic.Int32
	authHeaders   []string
	bodies        []string
	refreshAuth   string
	holdOld       *sync.WaitGroup
}

func newFakeGateway(t *testing.T, valid string) (*fakeGateway, *httptest.Server) {
	t.Helper()
	g := &fakeGateway{valid: valid, refreshStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+restclient.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		g.refreshCalls.Add(1)
		time.Sleep(g.refreshDelay)

		var in struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)

		g.mu.Lock()
		g.refreshAuth = r.Header.Get("Authorization")
		status := g.refreshStatus
		g.mu.Unlock()

		if status != http.StatusOK || in.Refresh == "" {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh-access", "refresh": "fresh-refresh"})
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		g.protected.Add(1)
		body, _ := io.ReadAll(r.Body)

		g.mu.Lock()
		g.authHeaders = append(g.authHeaders, r.Header.Get("Authorization"))
		g.bodies = append(g.bodies, string(body))
		valid := g.valid
		hold := g.holdOld
		g.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+valid {
			if hold != nil {
				hold.Done()
				hold.Wait()
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "request_id": r.Header.Get("X-Request-ID")})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return g, srv
}

func newClient(t *testing.T, url string, pair tokens.Pair) (*restclient.Client, tokens.Store) {
	t.Helper()
	store := tokens.NewInMemoryStore()
	require.NoError(t, store.Set(context.Background(), pair))
	c, err := restclient.New(url, store)
	require.NoError(t, err)
	return c, store
}

func TestClient_AttachesBearer(t *testing.T) {
	ctx := context.Background()
	g, srv := newFakeGateway(t, "good")
	c, _ := newClient(t, srv.URL, tokens.Pair{Access: "good", Refresh: "r"})

	var out map[string]string
	resp, err := c.DoJSON(ctx, http.MethodGet, "/protected", nil, &out)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", out["status"])
	require.NotEmpty(t, out["request_id"])
	require.Equal(t, []string{"Bearer good"}, g.authHeaders)
	require.Zero(t, g.refreshCalls.Load())
}

func TestClient_NoTokenOmitsHeader(t *testing.T) {
	ctx := context.Background()
	g, srv := newFakeGateway(t, "good")
	c, _ := newClient(t, srv.URL, tokens.Pair{})

	_, err := c.DoJSON(ctx, http.MethodGet, "/protected", nil, nil)
	require.True(t, restclient.IsUnauthorized(err))
	require.Equal(t, []string{""}, g.authHeaders)
	// refresh is attempted and fails for lack of a refresh token, without a network call
	require.Zero(t, g.refreshCalls.Load())
}

func TestClient_RefreshAndRetryOnce(t *testing.T) {
	ctx := context.Background()
	g, srv := newFakeGateway(t, "fresh-access")
	c, store := newClient(t, srv.URL, tokens.Pair{Access: "stale", Refresh: "r1"})

	body := map[string]string{"name": "task-1"}
	resp, err := c.DoJSON(ctx, http.MethodPost, "/protected", body, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, int32(1), g.refreshCalls.Load())
	require.Equal(t, "Bearer r1", g.refreshAuth)
	require.Equal(t, []string{"Bearer stale", "Bearer fresh-access"}, g.authHeaders)
	require.Equal(t, g.bodies[0], g.bodies[1], "body must be replayed on retry")

	pair, err := tokens.Load(ctx, store)
	require.NoError(t, err)
	require.Equal(t, tokens.Pair{Access: "fresh-access", Refresh: "fresh-refresh"}, pair)
}

func TestClient_SecondUnauthorizedIsTerminal(t *testing.T) {
	ctx := context.Background()
	// the refreshed token is not accepted either
	g, srv := newFakeGateway(t, "never")
	c, _ := newClient(t, srv.URL, tokens.Pair{Access: "stale", Refresh: "r1"})

	_, err := c.DoJSON(ctx, http.MethodGet, "/protected", nil, nil)
	require.Error(t, err)
	require.True(t, restclient.IsUnauthorized(err))
	require.Equal(t, int32(1), g.refreshCalls.Load())
	require.Equal(t, int32(2), g.protected.Load())
}

func TestClient_RefreshFailureClearsStore(t *testing.T) {
	ctx := context.Background()
	g, srv := newFakeGateway(t, "good")
	g.refreshStatus = http.StatusUnauthorized
	c, store := newClient(t, srv.URL, tokens.Pair{Access: "stale", Refresh: "expired"})

	_, err := c.DoJSON(ctx, http.MethodGet, "/protected", nil, nil)
	require.True(t, restclient.IsUnauthorized(err))
	require.Equal(t, int32(1), g.protected.Load(), "no retry after a failed refresh")

	pair, err := tokens.Load(ctx, store)
	require.NoError(t, err)
	require.Equal(t, tokens.Pair{}, pair)

	t.Run("refresh procedure reports the failure", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, tokens.Pair{Access: "a", Refresh: "r"}))
		_, err := c.Refresher().Refresh(ctx)
		require.ErrorIs(t, err, restclient.ErrRefreshFailed)
		pair, err := tokens.Load(ctx, store)
		require.NoError(t, err)
		require.True(t, pair.Empty())
	})
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	ctx := context.Background()
	const callers = 8

	g, srv := newFakeGateway(t, "fresh-access")
	g.refreshDelay = 200 * time.Millisecond
	hold := &sync.WaitGroup{}
	hold.Add(callers)
	g.holdOld = hold

	c, _ := newClient(t, srv.URL, tokens.Pair{Access: "stale", Refresh: "r1"})

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.DoJSON(ctx, http.MethodGet, "/protected", nil, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), g.refreshCalls.Load())
}

func TestClient_WithoutAuth(t *testing.T) {
	g, srv := newFakeGateway(t, "good")
	c, _ := newClient(t, srv.URL, tokens.Pair{Access: "good", Refresh: "r"})

	_, err := c.DoJSON(restclient.WithoutAuth(context.Background()), http.MethodGet, "/protected", nil, nil)
	require.True(t, restclient.IsUnauthorized(err))
	require.Equal(t, []string{""}, g.authHeaders)
	require.Zero(t, g.refreshCalls.Load())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := restclient.New("not a url", tokens.NewInMemoryStore())
	require.ErrorIs(t, err, restclient.ErrInvalidURL)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"name":["required"]}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL, tokens.Pair{Access: "a", Refresh: "r"})
	resp, err := c.DoJSON(context.Background(), http.MethodPost, "/queue_task/llm/", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var se *restclient.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.JSONEq(t, `{"name":["required"]}`, string(se.Body))
	require.False(t, se.Unauthorized())
}
