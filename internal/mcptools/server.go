package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewResearchMCPServer creates an MCP server with the research tools
// registered: research, compile_slides, list_reports and read_report.
func NewResearchMCPServer(svc *ResearchService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ainalyst",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "research",
		Description: "Research a question end to end: decompose it into sub-questions, search and answer each, write a cited markdown report and compile it into slides. Never fails for upstream outages; degraded stages are listed in the result.",
	}, svc.Research)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compile_slides",
		Description: "Compile a markdown report into a paginated slide deck and return it as a JSON or YAML document.",
	}, svc.CompileSlides)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_reports",
		Description: "List saved research runs, newest first.",
	}, svc.ListReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_report",
		Description: "Return the markdown report of a saved research run.",
	}, svc.ReadReport)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
