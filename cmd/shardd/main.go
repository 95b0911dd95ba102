// Command shardd runs one search shard: it opens a SQLite FTS5 store,
// wires it into a shard.Shard actor, and exposes that actor over HTTP for
// peers and operators to call.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/torua/internal/config"
	"github.com/dreamware/torua/internal/logging"
	"github.com/dreamware/torua/internal/metrics"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/rpc"
	"github.com/dreamware/torua/internal/shard"
	"github.com/dreamware/torua/internal/store"
)

// version is set at build time via -ldflags; left at "dev" otherwise.
var version = "dev"

var (
	configPath string
	logLevel   string
	jsonLogs   bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shardd",
		Short: "shardd hosts one full-text search shard",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "shard.yaml", "path to the shard's bootstrap config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured JSON logs instead of console output")

	root.AddCommand(serveCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print shardd's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "open the shard's store and serve RPCs until signaled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	logging.Init(logging.Config{Level: logging.Level(logLevel), JSONOutput: jsonLogs})
	log := logging.WithComponent("shardd")

	node, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbPath := node.DataDir + "/" + node.Name + ".db"
	st, err := store.Open(dbPath, node.IDType)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var reg registry.Registry
	if len(node.Peers) > 0 || len(node.ColdPeers) > 0 {
		reg = rpc.NewHTTPRegistry(node.Peers, node.ColdPeers)
	} else {
		reg = registry.NewInMemoryRegistry()
	}

	sh, err := shard.New(node.Name, node.IDType, st, reg, nil)
	if err != nil {
		return fmt.Errorf("construct shard: %w", err)
	}
	defer sh.Close()

	if !sh.IsConfigured() {
		if err := sh.Configure(context.Background(), node.ShardConfig); err != nil {
			log.Warn().Err(err).Msg("initial configure failed; shard remains fresh until reconfigured")
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/", rpc.NewServer(sh))
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              node.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("listen", node.Listen).Str("shard", node.Name).Msg("shardd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("shardd stopped")
	return nil
}
