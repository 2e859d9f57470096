package graphql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/graphql"
	"github.com/jrsteele09/go-session-client/tokens"
)

type fakeEndpoint struct {
	mu          sync.Mutex
	valid       string
	authHeaders []string
	ops         []graphql.Operation
	status      int
}

func newFakeEndpoint(t *testing.T, valid string) (*fakeEndpoint, *httptest.Server) {
	t.Helper()
	f := &fakeEndpoint{valid: valid, status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var op graphql.Operation
		_ = json.NewDecoder(r.Body).Decode(&op)

		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.ops = append(f.ops, op)
		valid, status := f.valid, f.status
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"down"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+valid {
			_, _ = w.Write([]byte(`{"errors":[{"message":"Could not verify JWT: JWTExpired","extensions":{"code":"invalid-jwt","path":"$"}}]}`))
			return
		}
		switch op.OperationName {
		case "Rename":
			_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"permission denied","extensions":{"code":"permission-error"}}]}`))
		case "Broken":
			_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"field not found","path":["users"]}]}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"users":[{"id":1,"username":"ada"}]}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeEndpoint) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeaders...)
}

func (f *fakeEndpoint) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func storeWith(t *testing.T, pair tokens.Pair) tokens.Store {
	t.Helper()
	s := tokens.NewInMemoryStore()
	require.NoError(t, s.Set(context.Background(), pair))
	return s
}

// storeRefresher rotates the access token in a store, like the REST refresher.
type storeRefresher struct {
	store  tokens.Store
	next   string
	calls  atomic.Int32
	failed bool
}

func (r *storeRefresher) Refresh(ctx context.Context) (string, error) {
	r.calls.Add(1)
	if r.failed {
		_ = r.store.Clear(ctx)
		return "", graphql.ErrNoAccessToken
	}
	return r.next, r.store.Set(ctx, tokens.Pair{Access: r.next, Refresh: "refresh"})
}

var usersQuery = graphql.Operation{Query: `query Users { users { id username } }`, OperationName: "Users"}

func TestTransport_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("query with bearer", func(t *testing.T) {
		f, srv := newFakeEndpoint(t, "a1")
		tr, err := graphql.New(srv.URL, "", storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, err)

		resp, err := tr.Execute(ctx, usersQuery)
		require.NoError(t, err)
		require.Empty(t, resp.Errors)

		var out struct {
			Users []struct {
				Username string `json:"username"`
			} `json:"users"`
		}
		require.NoError(t, resp.Decode(&out))
		require.Equal(t, "ada", out.Users[0].Username)

		require.Equal(t, []string{"Bearer a1"}, f.headers())
		f.mu.Lock()
		require.Equal(t, "Users", f.ops[0].OperationName)
		f.mu.Unlock()
	})

	t.Run("token is read per call", func(t *testing.T) {
		f, srv := newFakeEndpoint(t, "a1")
		store := storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"})
		tr, err := graphql.New(srv.URL, "", store)
		require.NoError(t, err)

		_, err = tr.Execute(ctx, usersQuery)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, tokens.Pair{Access: "a2", Refresh: "r2"}))
		_, err = tr.Execute(ctx, usersQuery)
		require.NoError(t, err)

		require.Equal(t, []string{"Bearer a1", "Bearer a2"}, f.headers())
	})

	t.Run("graphql errors are passed through", func(t *testing.T) {
		_, srv := newFakeEndpoint(t, "a1")
		tr, err := graphql.New(srv.URL, "", storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, err)

		resp, err := tr.Execute(ctx, graphql.Operation{Query: `query Broken { users { nope } }`, OperationName: "Broken"})
		require.NoError(t, err)
		require.Len(t, resp.Errors, 1)
		require.Equal(t, "field not found", resp.Errors[0].Message)
	})

	t.Run("no token fails before sending", func(t *testing.T) {
		f, srv := newFakeEndpoint(t, "a1")
		tr, err := graphql.New(srv.URL, "", tokens.NewInMemoryStore())
		require.NoError(t, err)

		_, err = tr.Execute(ctx, usersQuery)
		require.ErrorIs(t, err, graphql.ErrNoAccessToken)
		require.Empty(t, f.headers())
	})

	t.Run("subscription is refused", func(t *testing.T) {
		_, srv := newFakeEndpoint(t, "a1")
		tr, err := graphql.New(srv.URL, "", storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, err)

		_, err = tr.Execute(ctx, graphql.Operation{Query: `subscription { users { id } }`})
		require.ErrorIs(t, err, graphql.ErrSubscriptionRequiresStream)
	})

	t.Run("non 2xx is an HTTPError", func(t *testing.T) {
		f, srv := newFakeEndpoint(t, "a1")
		f.setStatus(http.StatusBadGateway)
		tr, err := graphql.New(srv.URL, "", storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, err)

		_, err = tr.Execute(ctx, usersQuery)
		var he *graphql.HTTPError
		require.ErrorAs(t, err, &he)
		require.Equal(t, http.StatusBadGateway, he.StatusCode)
		require.JSONEq(t, `{"error":"down"}`, string(he.Body))
	})
}

func TestTransport_Execute_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid jwt refreshes once", func(t *testing.T) {
		f, srv := newFakeEndpoint(t, "a2")
		store := storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"})
		refresher := &storeRefresher{store: store, next: "a2"}
		tr, err := graphql.New(srv.URL, "", store, graphql.WithRefresher(refresher))
		require.NoError(t, err)

		resp, err := tr.Execute(ctx, usersQuery)
		require.NoError(t, err)
		require.Empty(t, resp.Errors)
		require.EqualValues(t, 1, refresher.calls.Load())
		require.Equal(t, []string{"Bearer a1", "Bearer a2"}, f.headers())
	})

	t.Run("still invalid after refresh is returned", func(t *testing.T) {
		_, srv := newFakeEndpoint(t, "never")
		store := storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"})
		refresher := &storeRefresher{store: store, next: "a2"}
		tr, err := graphql.New(srv.URL, "", store, graphql.WithRefresher(refresher))
		require.NoError(t, err)

		resp, err := tr.Execute(ctx, usersQuery)
		require.NoError(t, err)
		require.Equal(t, "invalid-jwt", resp.Errors[0].Code())
		require.EqualValues(t, 1, refresher.calls.Load())
	})

	t.Run("refresh failure", func(t *testing.T) {
		_, srv := newFakeEndpoint(t, "a2")
		store := storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"})
		tr, err := graphql.New(srv.URL, "", store, graphql.WithRefresher(&storeRefresher{store: store, failed: true}))
		require.NoError(t, err)

		_, err = tr.Execute(ctx, usersQuery)
		require.Error(t, err)
		pair, err := tokens.Load(ctx, store)
		require.NoError(t, err)
		require.True(t, pair.Empty())
	})
}

func TestTransport_SuppressMutationErrors(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeEndpoint(t, "a1")

	var reported []graphql.Error
	tr, err := graphql.New(srv.URL, "", storeWith(t, tokens.Pair{Access: "a1", Refresh: "r1"}),
		graphql.WithSuppressMutationErrors(func(op graphql.Operation, errs []graphql.Error) {
			reported = append(reported, errs...)
		}),
	)
	require.NoError(t, err)

	resp, err := tr.Execute(ctx, graphql.Operation{Query: `mutation Rename { rename { id } }`, OperationName: "Rename"})
	require.NoError(t, err)
	require.Empty(t, resp.Errors)
	require.Len(t, reported, 1)
	require.Equal(t, "permission-error", reported[0].Code())

	// queries keep their errors
	resp, err = tr.Execute(ctx, graphql.Operation{Query: `query Broken { users { nope } }`, OperationName: "Broken"})
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	require.Len(t, reported, 1)
}
