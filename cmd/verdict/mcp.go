package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	vdmcp "github.com/deixis/verdict/internal/mcp"
	"github.com/deixis/verdict/internal/store"
)

// storeCacheSize is the number of runs the MCP server keeps in memory.
const storeCacheSize = 5

type mcpOptions struct {
	http         string
	instructions bool
}

func newMCPCmd(g *globalOptions) *cobra.Command {
	opts := &mcpOptions{}
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio, or on HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.instructions {
				fmt.Fprint(g.stdout, vdmcp.Instructions)
				return nil
			}
			return serve(cmd.Context(), g, opts.http)
		},
	}
	cmd.Flags().StringVar(&opts.http, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().BoolVar(&opts.instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serve(ctx context.Context, g *globalOptions, httpAddr string) error {
	e, err := g.newEnv(0)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	// Without a configured store dir, runs only live as long as the server.
	disk := e.store
	if e.loaded.Config.StoreDir == "" {
		disk = store.NewDiskStore("")
	}
	st := store.NewLRUStore(storeCacheSize, disk)

	server := vdmcp.NewServer(e.loaded.Config, e.runner, st, e.engine.Workspace,
		vdmcp.WithRepoRoot(e.loaded.RepoRoot),
		vdmcp.WithLogger(e.logger),
	)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, e.logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
