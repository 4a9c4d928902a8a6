// Package mcp connects to an external MCP tool server over streamable HTTP
// and bridges its tools into the agent tool registry.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/unisat/agentkit/internal/agent"
	"github.com/unisat/agentkit/internal/logging"
	"github.com/unisat/agentkit/internal/version"
)

// toolCallTimeout caps a single remote tool call. It matches the server's
// per-query budget rather than the connect timeout: the session's HTTP
// client is reused for every CallTool after setup.
const toolCallTimeout = 5 * time.Minute

// Result is the outcome of a connection attempt. Exactly one of Toolset and
// Unavailable is set; callers branch on Connected().
type Result struct {
	Toolset     *Toolset
	Unavailable *Unavailable
}

// Connected reports whether the tool server connection succeeded.
func (r Result) Connected() bool { return r.Toolset != nil }

// Unavailable records a failed connection. The service keeps running in
// degraded mode with the reason surfaced in logs and the status endpoint.
type Unavailable struct {
	Endpoint string
	Reason   string
}

// Toolset is a live connection to an MCP tool server.
type Toolset struct {
	endpoint string
	session  *sdk.ClientSession
	tools    []agent.Tool
	log      *logging.Logger
}

// Connect dials the MCP server at endpoint and lists its tools. A failure to
// connect or list returns an Unavailable result, never an error: tool server
// downtime must not prevent startup.
func Connect(ctx context.Context, endpoint string, timeout time.Duration, log *logging.Logger) Result {
	log = log.Sub("mcp")

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "agentkit",
		Version: version.Version,
	}, nil)

	// The timeout bounds setup (dial + tool listing) through dialCtx only.
	// Steady-state tool calls run on the shared HTTP client and get the
	// full per-query budget.
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := client.Connect(dialCtx, &sdk.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: toolCallTimeout},
	}, nil)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("MCP server unavailable")
		return Result{Unavailable: &Unavailable{Endpoint: endpoint, Reason: err.Error()}}
	}

	ts := &Toolset{endpoint: endpoint, session: session, log: log}
	if err := ts.loadTools(dialCtx); err != nil {
		session.Close()
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("listing MCP tools failed")
		return Result{Unavailable: &Unavailable{Endpoint: endpoint, Reason: err.Error()}}
	}

	log.Info().Str("endpoint", endpoint).Int("tools", len(ts.tools)).Msg("MCP server connected")
	return Result{Toolset: ts}
}

// Endpoint returns the server URL.
func (t *Toolset) Endpoint() string { return t.endpoint }

// Tools returns the bridged tools.
func (t *Toolset) Tools() []agent.Tool { return t.tools }

// RegisterAll adds every bridged tool to the registry.
func (t *Toolset) RegisterAll(reg *agent.ToolRegistry) {
	for _, tool := range t.tools {
		reg.Register(tool)
	}
}

// Close shuts down the server session.
func (t *Toolset) Close() error {
	return t.session.Close()
}

// loadTools pages through the server's tool list and bridges each tool.
func (t *Toolset) loadTools(ctx context.Context) error {
	cursor := ""
	for {
		res, err := t.session.ListTools(ctx, &sdk.ListToolsParams{Cursor: cursor})
		if err != nil {
			return fmt.Errorf("listing tools: %w", err)
		}
		for _, tool := range res.Tools {
			t.tools = append(t.tools, newProxyTool(t.session, tool))
		}
		if res.NextCursor == "" {
			return nil
		}
		cursor = res.NextCursor
	}
}

// proxyTool adapts a remote MCP tool to the agent.Tool interface.
type proxyTool struct {
	session     *sdk.ClientSession
	remoteName  string
	name        string
	description string
	inputSchema string
}

func newProxyTool(session *sdk.ClientSession, tool *sdk.Tool) *proxyTool {
	schema := ""
	if tool.InputSchema != nil {
		if data, err := json.Marshal(tool.InputSchema); err == nil {
			schema = string(data)
		}
	}
	return &proxyTool{
		session:     session,
		remoteName:  tool.Name,
		name:        sanitizeName(tool.Name),
		description: tool.Description,
		inputSchema: schema,
	}
}

func (p *proxyTool) Name() string        { return p.name }
func (p *proxyTool) Description() string { return p.description }
func (p *proxyTool) InputSchema() string { return p.inputSchema }

// Execute calls the remote tool and flattens its text content. A tool-level
// error (IsError) comes back as a Go error so the agent loop reports it.
func (p *proxyTool) Execute(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("invalid tool input: %w", err)
		}
	}

	res, err := p.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      p.remoteName,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", p.remoteName, err)
	}

	text := flattenContent(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", p.remoteName, text)
	}
	return text, nil
}

// flattenContent joins the text parts of a tool result.
func flattenContent(content []sdk.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeName normalizes remote tool names to identifiers the LLM can emit
// reliably in tool_call blocks.
func sanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}
