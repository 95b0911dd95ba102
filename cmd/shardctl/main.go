// Command shardctl is a thin HTTP client for operators to index, search,
// and inspect a running shardd process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/rpc"
)

var version = "dev"

var targetURL string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shardctl",
		Short: "shardctl talks to a running shardd over HTTP",
	}
	root.PersistentFlags().StringVar(&targetURL, "target", "http://127.0.0.1:8090", "base URL of the shardd to talk to")
	root.AddCommand(versionCmd(), indexCmd(), searchCmd(), statsCmd(), configureCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print shardctl's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func indexCmd() *cobra.Command {
	var id, content string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "index a single document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := rpc.NewClient(targetURL)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			fieldErrs, err := client.Index(ctx, []cluster.Document{{ID: parseID(id), Content: content}})
			if err != nil {
				return err
			}
			if len(fieldErrs) > 0 {
				return reportFieldErrors(cmd, fieldErrs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexed")
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.Flags().StringVar(&content, "content", "", "document content")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("content")
	return cmd
}

func searchCmd() *cobra.Command {
	var query string
	var max int
	var includeCold bool
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run a query against the shard",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := rpc.NewClient(targetURL)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.Search(ctx, registry.SearchRequest{Query: query, Max: max, IncludeCold: includeCold})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp.Hits)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "query text")
	cmd.Flags().IntVar(&max, "max", 10, "maximum hits to return")
	cmd.Flags().BoolVar(&includeCold, "include-cold", false, "also search this shard's cold-storage chain")
	cmd.MarkFlagRequired("query")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print the shard's document count, size, and read-only status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := rpc.NewClient(targetURL)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			stats, err := client.Stats(ctx)
			if err != nil {
				return err
			}
			out := struct {
				Count    int64 `json:"count"`
				Bytes    int64 `json:"bytes"`
				ReadOnly bool  `json:"readOnly"`
			}{Count: stats.Count, Bytes: stats.Bytes, ReadOnly: stats.ReadOnly}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func configureCmd() *cobra.Command {
	var readOnly bool
	var tickIntervalMs int64
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "replace the shard's configuration; settings not given here are reset to their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := rpc.NewClient(targetURL)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return client.Configure(ctx, cluster.ShardConfig{ReadOnly: readOnly, TickIntervalMs: tickIntervalMs})
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "seal the shard against further Index calls")
	cmd.Flags().Int64Var(&tickIntervalMs, "tick-interval-ms", 0, "scheduler tick period; 0 applies the default")
	return cmd
}

func reportFieldErrors(cmd *cobra.Command, errs []cluster.FieldError) error {
	var b strings.Builder
	for _, e := range errs {
		fmt.Fprintf(&b, "%s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("rejected:\n%s", b.String())
}

// parseID coerces a CLI-supplied string id to an int64 when it parses as
// one, so --id 42 indexes an integer-mode shard correctly; otherwise it is
// passed through as a string.
func parseID(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
