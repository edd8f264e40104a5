// Package client implements the TCP client used by kvs-client: dial the
// server, send a single-command request frame, and decode its response.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jassi-singh/aether-kv/internal/protocol"
	"github.com/jassi-singh/aether-kv/internal/record"
)

// ErrKeyNotFound is returned by Remove when the server reports the key
// as absent. Get reports an absent key through its ok result instead.
var ErrKeyNotFound = errors.New("client: key not found")

// ErrServer wraps any other error status the server returns.
var ErrServer = errors.New("client: server error")

const dialTimeout = 5 * time.Second

// Client talks to a running server. The server answers one request
// frame per connection and then closes it, so each call uses its own
// connection: the first call uses the one Dial opened, later calls dial
// a fresh one.
type Client struct {
	addr string
	conn net.Conn
}

// Dial connects to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{addr: addr, conn: conn}, nil
}

// Close closes the connection that has not been used yet, if any.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Get fetches the value for key. ok is false and err is nil if the
// server reports the key as absent.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	result, err := c.roundTrip(record.Get(key))
	if err != nil {
		return "", false, err
	}
	if result.OK && result.Message == protocol.KeyNotFoundMessage {
		return "", false, nil
	}
	if !result.OK {
		return "", false, fmt.Errorf("%w: %s", ErrServer, result.Message)
	}
	return result.Message, true, nil
}

// Set stores value under key.
func (c *Client) Set(key, value string) error {
	result, err := c.roundTrip(record.Set(key, value))
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("%w: %s", ErrServer, result.Message)
	}
	return nil
}

// Remove deletes key. Returns ErrKeyNotFound if the server reports the
// key as absent.
func (c *Client) Remove(key string) error {
	result, err := c.roundTrip(record.Remove(key))
	if err != nil {
		return err
	}
	if !result.OK {
		if result.Message == protocol.KeyNotFoundMessage {
			return ErrKeyNotFound
		}
		return fmt.Errorf("%w: %s", ErrServer, result.Message)
	}
	return nil
}

func (c *Client) roundTrip(cmd record.Record) (protocol.Result, error) {
	if c.conn == nil {
		conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
		if err != nil {
			return protocol.Result{}, fmt.Errorf("client: dial %s: %w", c.addr, err)
		}
		c.conn = conn
	}
	defer func() {
		c.conn.Close()
		c.conn = nil
	}()

	req := protocol.Request{Commands: []record.Record{cmd}}
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		return protocol.Result{}, fmt.Errorf("client: %w", err)
	}
	resp, err := protocol.ReadResponse(c.conn)
	if err != nil {
		return protocol.Result{}, fmt.Errorf("client: %w", err)
	}
	if len(resp.Results) != 1 {
		return protocol.Result{}, fmt.Errorf("client: expected 1 response, got %d", len(resp.Results))
	}
	return resp.Results[0], nil
}
