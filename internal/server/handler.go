// Package server implements the accept loop and per-connection request
// handler that sit on top of an engine.Engine and the protocol codec.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jassi-singh/aether-kv/internal/engine"
	"github.com/jassi-singh/aether-kv/internal/protocol"
	"github.com/jassi-singh/aether-kv/internal/record"
)

// Handler decodes one request frame from a connection, dispatches each
// command to the engine in order, and writes back a response frame.
type Handler struct {
	engine engine.Engine
}

// NewHandler builds a Handler bound to e.
func NewHandler(e engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Handle services a single request frame read from conn and writes the
// matching response frame. All commands in the frame are applied, in
// order, before any response is emitted.
func (h *Handler) Handle(conn net.Conn) error {
	req, err := protocol.ReadRequest(conn)
	if err != nil {
		return fmt.Errorf("server: read request: %w", err)
	}

	results := make([]protocol.Result, 0, len(req.Commands))
	for _, cmd := range req.Commands {
		results = append(results, h.dispatch(cmd))
	}

	if err := protocol.WriteResponse(conn, protocol.Response{Results: results}); err != nil {
		return fmt.Errorf("server: write response: %w", err)
	}
	return nil
}

func (h *Handler) dispatch(cmd record.Record) protocol.Result {
	switch cmd.Kind {
	case record.KindSet:
		if err := h.engine.Set(cmd.Key, cmd.Value); err != nil {
			slog.Error("server: set failed", "key", cmd.Key, "error", err)
			return protocol.Err(err.Error())
		}
		return protocol.Ok("")

	case record.KindGet:
		value, ok, err := h.engine.Get(cmd.Key)
		if err != nil {
			slog.Error("server: get failed", "key", cmd.Key, "error", err)
			return protocol.Err(err.Error())
		}
		if !ok {
			return protocol.Ok(protocol.KeyNotFoundMessage)
		}
		return protocol.Ok(value)

	case record.KindRemove:
		if err := h.engine.Remove(cmd.Key); err != nil {
			if errors.Is(err, engine.ErrKeyNotFound) {
				return protocol.Err(protocol.KeyNotFoundMessage)
			}
			slog.Error("server: remove failed", "key", cmd.Key, "error", err)
			return protocol.Err(err.Error())
		}
		return protocol.Ok("")

	default:
		return protocol.Err(fmt.Sprintf("unknown command kind %d", cmd.Kind))
	}
}
