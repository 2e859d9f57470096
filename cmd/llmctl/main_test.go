package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/gateway"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, cleanup := newRootCmd()
	defer cleanup()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"-q"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"exp":      time.Now().Add(time.Hour).Unix(),
		"username": "ada",
		"user_id":  7,
		"org_id":   3,
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+gateway.TokenPath, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": access, "refresh": "r1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "tokens.json"))
	t.Setenv("TOKEN_PASSPHRASE", "")
	t.Setenv("JWKS_URL", "")
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "error")

	out, err := runCLI(t, "login", "-u", "ada", "-p", "secret")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as ada")

	out, err = runCLI(t, "whoami")
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	require.Equal(t, "ada", state["username"])
	require.EqualValues(t, 7, state["user_id"])
	require.Equal(t, true, state["is_login"])

	_, err = runCLI(t, "logout")
	require.NoError(t, err)

	_, err = runCLI(t, "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestCLI_UnknownStore(t *testing.T) {
	t.Setenv("TOKEN_STORE", "floppy")
	_, err := runCLI(t, "whoami")
	require.ErrorContains(t, err, "unknown TOKEN_STORE")
}

func TestDecodeTasks(t *testing.T) {
	one, err := decodeTasks([]byte(`{"name":"a","model_name":"m","llm_task_type":"completion","prompt":"p"}`))
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, gateway.KindPrompt, one[0].Kind())

	many, err := decodeTasks([]byte(`
	[
		{"name":"a","model_name":"m","llm_task_type":"completion","prompt":"p"},
		{"name":"b","model_name":"m","llm_task_type":"chat_completion","messages":[{"role":"user","content":"hi"}]}
	]`))
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Equal(t, gateway.KindMessages, many[1].Kind())

	_, err = decodeTasks([]byte(`{`))
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	for _, bad := range []string{"", "x", "0", "-1"} {
		_, err := parseID(bad)
		require.Error(t, err, bad)
	}
}
