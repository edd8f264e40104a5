// Command kvs-server runs the networked key-value store server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jassi-singh/aether-kv/internal/config"
	"github.com/jassi-singh/aether-kv/internal/engine"
	"github.com/jassi-singh/aether-kv/internal/server"
)

func main() {
	var addrFlag, engineFlag string

	root := &cobra.Command{
		Use:   "kvs-server",
		Short: "Run the aether-kv server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addrFlag, engineFlag, cmd.Flags().Changed("addr"), cmd.Flags().Changed("engine"))
		},
	}
	root.Flags().StringVar(&addrFlag, "addr", "", "address to listen on (host:port)")
	root.Flags().StringVar(&engineFlag, "engine", "", `storage engine: "kvs" or "sled"`)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, engineName string, addrSet, engineSet bool) error {
	slogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(slogHandler))

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("kvs-server: load config: %w", err)
	}
	if addrSet {
		cfg.Addr = addr
	}
	if engineSet {
		cfg.Engine = engineName
	}

	slog.Info("server: starting", "addr", cfg.Addr, "engine", cfg.Engine, "data_dir", cfg.DataDir)

	e, err := engine.Open(engine.Name(cfg.Engine), cfg.DataDir, cfg.SyncOnEveryWrite, int(cfg.CompactionFactor))
	if err != nil {
		return fmt.Errorf("kvs-server: open engine: %w", err)
	}
	defer func() {
		if err := e.Close(); err != nil {
			slog.Error("server: error closing engine", "error", err)
		}
	}()

	srv := server.New(cfg.Addr, e)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("kvs-server: %w", err)
	}
	return nil
}
