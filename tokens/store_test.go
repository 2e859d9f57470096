package tokens_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jrsteele09/go-session-client/tokens"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := tokens.NewInMemoryStore()

	t.Run("empty store reports absent tokens", func(t *testing.T) {
		pair, err := tokens.Load(ctx, s)
		require.NoError(t, err)
		require.True(t, pair.Empty())
	})

	t.Run("set is observed immediately", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, tokens.Pair{Access: "a1", Refresh: "r1"}))
		require.NoError(t, s.Set(ctx, tokens.Pair{Access: "a2", Refresh: "r2"}))

		access, err := s.Access(ctx)
		require.NoError(t, err)
		require.Equal(t, "a2", access)

		refresh, err := s.Refresh(ctx)
		require.NoError(t, err)
		require.Equal(t, "r2", refresh)
	})

	t.Run("clear removes both", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx))
		pair, err := tokens.Load(ctx, s)
		require.NoError(t, err)
		require.Equal(t, tokens.Pair{}, pair)
	})
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := tokens.NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, tokens.Pair{Access: "a", Refresh: "r"})
			_, _ = s.Access(ctx)
		}()
	}
	wg.Wait()

	pair, err := tokens.Load(ctx, s)
	require.NoError(t, err)
	require.Equal(t, tokens.Pair{Access: "a", Refresh: "r"}, pair)
}

func TestPair_Empty(t *testing.T) {
	require.True(t, tokens.Pair{}.Empty())
	require.True(t, tokens.Pair{Access: "a"}.Empty())
	require.True(t, tokens.Pair{Refresh: "r"}.Empty())
	require.True(t, tokens.Pair{Access: " ", Refresh: "r"}.Empty())
	require.False(t, tokens.Pair{Access: "a", Refresh: "r"}.Empty())
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	s := tokens.NewInMemoryStore()
	ts := tokens.NewTokenSource(ctx, s)

	_, err := ts.Token()
	require.ErrorIs(t, err, tokens.ErrNoAccessToken)

	require.NoError(t, s.Set(ctx, tokens.Pair{Access: "a1", Refresh: "r1"}))
	tok, err := ts.Token()
	require.NoError(t, err)
	require.True(t, tok.Valid())

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	tok.SetAuthHeader(req)
	require.Equal(t, "Bearer a1", req.Header.Get("Authorization"))

	require.NoError(t, s.Set(ctx, tokens.Pair{Access: "a2", Refresh: "r2"}))
	tok, err = ts.Token()
	require.NoError(t, err)
	require.Equal(t, "a2", tok.AccessToken)
}
