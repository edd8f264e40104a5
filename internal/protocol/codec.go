// Package protocol implements the wire framing the server and client
// exchange over a TCP connection: a sentinel-prefixed request frame
// carrying one or more command records, and a matching response frame
// carrying one status/message pair per command. The server answers one
// request frame per connection.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jassi-singh/aether-kv/internal/record"
)

// ErrProtocol marks a framing violation: a bad sentinel byte or a
// short read where the frame demands more bytes.
var ErrProtocol = errors.New("protocol: framing error")

const sentinel = '*'

// StatusOK and StatusErr are the two response status bytes.
const (
	StatusOK  = '+'
	StatusErr = '-'
)

// KeyNotFoundMessage is the literal response body for a Get of an
// absent key (status StatusOK) and for a Remove of an absent key
// (status StatusErr).
const KeyNotFoundMessage = "Key not found"

// Request is a decoded request frame: an ordered list of commands.
type Request struct {
	Commands []record.Record
}

// Response is a decoded response frame: one result per command, in
// the same order as the request's commands.
type Response struct {
	Results []Result
}

// Result is a single command's outcome.
type Result struct {
	OK      bool
	Message string
}

// Ok builds a successful Result.
func Ok(message string) Result { return Result{OK: true, Message: message} }

// Err builds a failed Result.
func Err(message string) Result { return Result{OK: false, Message: message} }

// WriteRequest encodes req as a request frame and writes it to w.
func WriteRequest(w io.Writer, req Request) error {
	if _, err := w.Write([]byte{sentinel}); err != nil {
		return fmt.Errorf("%w: write sentinel: %v", ErrProtocol, err)
	}

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(req.Commands)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return fmt.Errorf("%w: write command count: %v", ErrProtocol, err)
	}

	for _, cmd := range req.Commands {
		payload := cmd.EncodePayload()
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("%w: write command length: %v", ErrProtocol, err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("%w: write command bytes: %v", ErrProtocol, err)
		}
	}
	return nil
}

// ReadRequest decodes one request frame from r.
func ReadRequest(r io.Reader) (Request, error) {
	if err := readSentinel(r); err != nil {
		return Request{}, err
	}

	count, err := readU64(r, "command count")
	if err != nil {
		return Request{}, err
	}

	commands := make([]record.Record, 0, count)
	for i := uint64(0); i < count; i++ {
		cmdLen, err := readU64(r, "command length")
		if err != nil {
			return Request{}, err
		}
		buf := make([]byte, cmdLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Request{}, fmt.Errorf("%w: short command body: %v", ErrProtocol, err)
		}
		cmd, err := record.DecodePayload(buf)
		if err != nil {
			return Request{}, fmt.Errorf("%w: decode command: %v", ErrProtocol, err)
		}
		commands = append(commands, cmd)
	}
	return Request{Commands: commands}, nil
}

// WriteResponse encodes resp as a response frame and writes it to w.
func WriteResponse(w io.Writer, resp Response) error {
	if _, err := w.Write([]byte{sentinel}); err != nil {
		return fmt.Errorf("%w: write sentinel: %v", ErrProtocol, err)
	}

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(resp.Results)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return fmt.Errorf("%w: write result count: %v", ErrProtocol, err)
	}

	for _, res := range resp.Results {
		status := byte(StatusErr)
		if res.OK {
			status = StatusOK
		}
		if _, err := w.Write([]byte{status}); err != nil {
			return fmt.Errorf("%w: write status: %v", ErrProtocol, err)
		}

		msg := []byte(res.Message)
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(msg)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("%w: write message length: %v", ErrProtocol, err)
		}
		if len(msg) > 0 {
			if _, err := w.Write(msg); err != nil {
				return fmt.Errorf("%w: write message bytes: %v", ErrProtocol, err)
			}
		}
	}
	return nil
}

// ReadResponse decodes one response frame from r.
func ReadResponse(r io.Reader) (Response, error) {
	if err := readSentinel(r); err != nil {
		return Response{}, err
	}

	count, err := readU64(r, "result count")
	if err != nil {
		return Response{}, err
	}

	results := make([]Result, 0, count)
	for i := uint64(0); i < count; i++ {
		var statusBuf [1]byte
		if _, err := io.ReadFull(r, statusBuf[:]); err != nil {
			return Response{}, fmt.Errorf("%w: short status byte: %v", ErrProtocol, err)
		}
		msgLen, err := readU64(r, "message length")
		if err != nil {
			return Response{}, err
		}
		msgBuf := make([]byte, msgLen)
		if msgLen > 0 {
			if _, err := io.ReadFull(r, msgBuf); err != nil {
				return Response{}, fmt.Errorf("%w: short message body: %v", ErrProtocol, err)
			}
		}
		results = append(results, Result{OK: statusBuf[0] == StatusOK, Message: string(msgBuf)})
	}
	return Response{Results: results}, nil
}

func readSentinel(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return fmt.Errorf("%w: short read before sentinel: %v", ErrProtocol, err)
	}
	if b[0] != sentinel {
		return fmt.Errorf("%w: bad sentinel byte %q", ErrProtocol, b[0])
	}
	return nil
}

func readU64(r io.Reader, what string) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: short read for %s: %v", ErrProtocol, what, err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
