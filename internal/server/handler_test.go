package server

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jassi-singh/aether-kv/internal/engine"
	"github.com/jassi-singh/aether-kv/internal/protocol"
	"github.com/jassi-singh/aether-kv/internal/record"
)

func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()
	e, err := engine.OpenLogEngine(filepath.Join(t.TempDir(), "data"), true, 3)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestHandler_SetThenGet(t *testing.T) {
	h := NewHandler(newTestEngine(t))
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- h.Handle(srv) }()

	req := protocol.Request{Commands: []record.Record{record.Set("k1", "v1")}}
	require.NoError(t, protocol.WriteRequest(client, req))
	resp, err := protocol.ReadResponse(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Len(t, resp.Results, 1)
	require.True(t, resp.Results[0].OK)
	require.Equal(t, "", resp.Results[0].Message)

	go func() { done <- h.Handle(srv) }()
	req = protocol.Request{Commands: []record.Record{record.Get("k1")}}
	require.NoError(t, protocol.WriteRequest(client, req))
	resp, err = protocol.ReadResponse(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.True(t, resp.Results[0].OK)
	require.Equal(t, "v1", resp.Results[0].Message)
}

func TestHandler_GetMissingKey(t *testing.T) {
	h := NewHandler(newTestEngine(t))
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- h.Handle(srv) }()

	req := protocol.Request{Commands: []record.Record{record.Get("missing")}}
	require.NoError(t, protocol.WriteRequest(client, req))
	resp, err := protocol.ReadResponse(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.True(t, resp.Results[0].OK)
	require.Equal(t, protocol.KeyNotFoundMessage, resp.Results[0].Message)
}

func TestHandler_RemoveMissingKey(t *testing.T) {
	h := NewHandler(newTestEngine(t))
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- h.Handle(srv) }()

	req := protocol.Request{Commands: []record.Record{record.Remove("missing")}}
	require.NoError(t, protocol.WriteRequest(client, req))
	resp, err := protocol.ReadResponse(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.False(t, resp.Results[0].OK)
	require.Equal(t, protocol.KeyNotFoundMessage, resp.Results[0].Message)
}

func TestHandler_MultipleCommandsInOneFrame(t *testing.T) {
	h := NewHandler(newTestEngine(t))
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- h.Handle(srv) }()

	req := protocol.Request{Commands: []record.Record{
		record.Set("a", "1"),
		record.Set("b", "2"),
		record.Get("a"),
		record.Remove("b"),
	}}
	require.NoError(t, protocol.WriteRequest(client, req))
	resp, err := protocol.ReadResponse(client)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Len(t, resp.Results, 4)
	require.Equal(t, "1", resp.Results[2].Message)
	require.True(t, resp.Results[3].OK)
}
