// Command beingdb compiles ground-fact source directories into packs
// and serves conjunctive queries against them over HTTP. Grounded on
// ajitpratap0-nebula's cmd/nebula/main.go (cobra root-plus-subcommands
// shape) and the teacher's cmd/datalog/main.go (single-shot query mode).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jptmoore/beingdb/cliutil"
	"github.com/jptmoore/beingdb/compile"
	"github.com/jptmoore/beingdb/engine"
	"github.com/jptmoore/beingdb/httpapi"
	"github.com/jptmoore/beingdb/obslog"
	"github.com/jptmoore/beingdb/pack"
	"github.com/jptmoore/beingdb/query"
	"github.com/jptmoore/beingdb/version"
)

func main() {
	root := &cobra.Command{
		Use:   "beingdb",
		Short: "A read-mostly ground-fact store with a conjunctive query engine",
	}

	root.AddCommand(
		newCompileCmd(),
		newServeCmd(),
		newPredicatesCmd(),
		newQueryCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			v := version.Current()
			fmt.Printf("%s %s\n", v.Name, v.Version)
		},
	}
}

func newCompileCmd() *cobra.Command {
	var sourceDir, packDir, logLevel string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a source directory of ground facts into a fresh pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := obslog.New(obslog.Config{Level: logLevel})
			if err != nil {
				return err
			}
			defer log.Sync()

			report, err := compile.Run(sourceDir, packDir, log)
			if err != nil {
				return err
			}

			fmt.Printf("predicates processed: %d\n", report.PredicatesProcessed)
			fmt.Printf("facts written: %d\n", report.FactsWritten)
			if !report.OK() {
				fmt.Println("failed predicates:")
				for _, f := range report.Failed {
					fmt.Printf("  %s: arities=%v samples=%v\n", f.Name, f.Arities, f.Samples)
				}
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "directory of per-predicate fact files (required)")
	cmd.Flags().StringVar(&packDir, "pack", "", "pack directory to (re)create (required)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("pack")

	return cmd
}

func newServeCmd() *cobra.Command {
	var packDir, logLevel string
	var port, maxResults, maxConcurrent, maxIntermediate int
	var queryTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conjunctive queries over HTTP against a compiled pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := obslog.New(obslog.Config{Level: logLevel})
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
			if err != nil {
				return fmt.Errorf("opening pack: %w", err)
			}
			defer store.Close()

			eng := engine.New(store, engine.Config{
				QueryTimeout:           queryTimeout,
				MaxIntermediateResults: int64(maxIntermediate),
			})
			gate := engine.NewAdmissionGate(maxConcurrent)
			srv := httpapi.New(eng, gate, httpapi.Config{MaxResults: maxResults}, log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			addr := fmt.Sprintf(":%d", port)
			log.Info("serving", zap.String("addr", addr), zap.String("pack", packDir))
			return httpapi.ListenAndServe(ctx, addr, srv)
		},
	}

	cmd.Flags().StringVar(&packDir, "pack", "", "pack directory to serve (required)")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port")
	cmd.Flags().IntVar(&maxResults, "max-results", 1000, "server result ceiling")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 20, "admission gate concurrency limit")
	cmd.Flags().IntVar(&maxIntermediate, "max-intermediate-results", 10000, "intermediate binding cap per query")
	cmd.Flags().DurationVar(&queryTimeout, "query-timeout", 5*time.Second, "per-query deadline")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("pack")

	return cmd
}

// newPredicatesCmd is a debug subcommand: list a pack's predicates and
// their observed arity without starting a server.
func newPredicatesCmd() *cobra.Command {
	var packDir string

	cmd := &cobra.Command{
		Use:   "predicates",
		Short: "List the predicates present in a pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
			if err != nil {
				return fmt.Errorf("opening pack: %w", err)
			}
			defer store.Close()

			infos, err := store.Predicates()
			if err != nil {
				return err
			}
			cliutil.PredicateTable(os.Stdout, infos)
			return nil
		},
	}

	cmd.Flags().StringVar(&packDir, "pack", "", "pack directory (required)")
	_ = cmd.MarkFlagRequired("pack")
	return cmd
}

// newQueryCmd is a debug subcommand: run one query against a pack and
// print its bindings as a table followed by the result count, without
// starting a server.
func newQueryCmd() *cobra.Command {
	var packDir string
	var offset, limit int
	var hasOffset, hasLimit bool

	cmd := &cobra.Command{
		Use:   "query [query-string]",
		Short: "Run a single query against a pack and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := pack.Open(packDir, pack.OpenOptions{ReadOnly: true})
			if err != nil {
				return fmt.Errorf("opening pack: %w", err)
			}
			defer store.Close()

			q, err := query.Parse(args[0])
			if err != nil {
				return err
			}
			if err := engine.ValidateQuery(q, optionalInt(hasOffset, offset), optionalInt(hasLimit, limit)); err != nil {
				return err
			}

			eng := engine.New(store, engine.Config{QueryTimeout: 5 * time.Second, MaxIntermediateResults: 10000})

			ctx := context.Background()
			var result engine.Result
			if hasOffset || hasLimit {
				off, lim := 0, 100
				if hasOffset {
					off = offset
				}
				if hasLimit {
					lim = limit
				}
				result, err = eng.ExecuteStreaming(ctx, q, off, lim)
			} else {
				result, err = eng.Execute(ctx, q)
			}
			if err != nil {
				return err
			}

			rows := make([]map[string]string, len(result.Results))
			for i, b := range result.Results {
				rows[i] = b
			}
			cliutil.BindingTable(os.Stdout, result.Variables, rows)
			fmt.Printf("count: %d\n", result.Count)
			return nil
		},
	}

	cmd.Flags().StringVar(&packDir, "pack", "", "pack directory (required)")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	cmd.Flags().IntVar(&limit, "limit", 100, "result limit")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		hasOffset = cmd.Flags().Changed("offset")
		hasLimit = cmd.Flags().Changed("limit")
	}
	_ = cmd.MarkFlagRequired("pack")
	return cmd
}

func optionalInt(present bool, v int) *int {
	if !present {
		return nil
	}
	return &v
}
