package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jassi-singh/aether-kv/internal/engine"
	"github.com/jassi-singh/aether-kv/internal/server"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	e, err := engine.OpenLogEngine(filepath.Join(t.TempDir(), "data"), true, 3)
	require.NoError(t, err)

	srv := server.New("127.0.0.1:0", e)
	ln, err := srv.Listen()
	require.NoError(t, err)
	go srv.Serve(ln)

	t.Cleanup(func() {
		srv.Close()
		e.Close()
	})
	return ln.Addr().String()
}

func TestClient_SetGetRemove(t *testing.T) {
	addr := startTestServer(t)
	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k1", "v1"))

	value, ok, err := c.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", value)

	require.NoError(t, c.Remove("k1"))

	_, ok, err = c.Get("k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClient_RemoveMissingKey(t *testing.T) {
	addr := startTestServer(t)
	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	err = c.Remove("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)
}
