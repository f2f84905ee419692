// Package cmd provides the docsearch command line: ingesting files into the
// index, asking questions against it and listing what has been uploaded,
// without running the HTTP server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

type rootOptions struct {
	configPath string
	storePath  string
	logLevel   string
}

// app is what every subcommand works against.
type app struct {
	cfg      *config.Config
	opened   *store.Opened
	pipeline *pipeline.Pipeline
	executor *executor.Executor
}

func (a *app) Close() error {
	return a.opened.Close()
}

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Upload documents and ask questions about them",
		Long: `docsearch indexes PDF, Word and plain-text files into a TF-IDF index
and answers questions with the passages that match best.

It reads the same config file as the server, so both can share one store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults plus DS_* env when empty)")
	cmd.PersistentFlags().StringVar(&opts.storePath, "store", "", "override the file store path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newDocsCmd(opts))
	return cmd
}

// Execute runs the root command with interrupt handling.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func openApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app, error) {
	logger.Setup(opts.logLevel, "text", cmd.ErrOrStderr())

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.storePath != "" {
		cfg.Store.Backend = config.StoreBackendFile
		cfg.Store.Path = opts.storePath
	}

	opened, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		opened:   opened,
		pipeline: pipeline.New(opened.Store, extract.NewDispatcher(), cfg.Ingest, nil, nil, nil),
		executor: executor.New(opened.Store, cfg.Search, nil, nil),
	}, nil
}
