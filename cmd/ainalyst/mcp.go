package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nescampos/ainalyst/internal/mcptools"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the research tools over the Model Context Protocol",
	Long: `
Start an MCP server exposing the tools research, compile_slides, list_reports
and read_report. The server speaks stdio by default, so it can be launched
directly by MCP clients; --http serves streamable HTTP instead.

Logs go to stderr; stdout carries only protocol messages.
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newResearchApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := mcptools.NewResearchService(a.pipeline, a.compiler, a.cfg.OutputDir, a.log)
	server := mcptools.NewResearchMCPServer(svc)

	if mcpHTTPAddr != "" {
		a.log.Info("serving MCP over HTTP", map[string]interface{}{"addr": mcpHTTPAddr})
		return mcptools.RunHTTP(ctx, server, mcpHTTPAddr)
	}
	return mcptools.RunStdio(ctx, server)
}
