// Command kvs-client talks to a running aether-kv server, either via a
// one-shot subcommand (get/set/rm) or, with no subcommand, an
// interactive REPL.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jassi-singh/aether-kv/internal/cli"
	"github.com/jassi-singh/aether-kv/internal/client"
)

const defaultAddr = "127.0.0.1:4000"

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "kvs-client",
		Short: "Talk to an aether-kv server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(addr)
		},
	}
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "server address (host:port)")

	root.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Fetch the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(addr, args[0])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(addr, args[0], args[1])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "rm KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(addr, args[0])
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGet(addr, key string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	value, ok, err := c.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Key not found")
		return nil
	}
	fmt.Println(value)
	return nil
}

func runSet(addr, key, value string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Set(key, value)
}

func runRemove(addr, key string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Remove(key)
}

func runInteractive(addr string) error {
	slogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(slogHandler))

	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	return cli.NewHandler(c).Run()
}
