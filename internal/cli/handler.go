// Package cli provides the interactive REPL fallback kvs-client drops
// into when invoked with no subcommand: read a line, dispatch by verb,
// print the result, loop.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jassi-singh/aether-kv/internal/client"
)

// Handler manages the interactive command-line session against a
// connected client.
type Handler struct {
	client  *client.Client
	scanner *bufio.Scanner
}

// NewHandler creates a new CLI handler bound to c.
func NewHandler(c *client.Client) *Handler {
	return &Handler{
		client:  c,
		scanner: bufio.NewScanner(os.Stdin),
	}
}

// Run starts the interactive command loop, processing user input until
// an exit command is received or an error occurs.
func (h *Handler) Run() error {
	fmt.Println("Aether KV - interactive client")
	fmt.Println("Commands: SET <key> <value>, GET <key>, RM <key>, EXIT")
	fmt.Print("> ")

	for h.scanner.Scan() {
		line := strings.TrimSpace(h.scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}

		parts := strings.Fields(line)
		command := strings.ToUpper(parts[0])

		switch command {
		case "SET", "PUT":
			h.handleSet(parts)
		case "GET":
			h.handleGet(parts)
		case "RM", "DELETE", "REMOVE":
			h.handleRemove(parts)
		case "EXIT", "QUIT":
			slog.Info("cli: shutdown requested by user")
			fmt.Println("Goodbye!")
			return nil
		default:
			slog.Warn("cli: unknown command received", "command", command)
			fmt.Printf("Unknown command: %s\n", command)
			fmt.Println("Commands: SET <key> <value>, GET <key>, RM <key>, EXIT")
		}

		fmt.Print("> ")
	}

	if err := h.scanner.Err(); err != nil {
		return fmt.Errorf("cli: error reading input: %w", err)
	}
	return nil
}

func (h *Handler) handleSet(parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: SET <key> <value>")
		return
	}
	key := parts[1]
	value := strings.Join(parts[2:], " ")

	if err := h.client.Set(key, value); err != nil {
		slog.Error("cli: set failed", "key", key, "error", err)
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (h *Handler) handleGet(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: GET <key>")
		return
	}
	key := parts[1]

	value, ok, err := h.client.Get(key)
	if err != nil {
		slog.Error("cli: get failed", "key", key, "error", err)
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("Key not found")
		return
	}
	fmt.Println(value)
}

func (h *Handler) handleRemove(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: RM <key>")
		return
	}
	key := parts[1]

	if err := h.client.Remove(key); err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			fmt.Println("Key not found")
			return
		}
		slog.Error("cli: remove failed", "key", key, "error", err)
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}
