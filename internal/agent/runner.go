package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/unisat/agentkit/internal/domain"
	"github.com/unisat/agentkit/internal/llm"
	"github.com/unisat/agentkit/internal/logging"
)

// maxToolIterations limits how many tool call rounds the agent can perform
// for a single query.
const maxToolIterations = 5

// Retriever looks up knowledge base context for a query. Implemented by the
// knowledge package; nil when the agent has no knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// knowledgeLimit is how many knowledge chunks are injected per query.
const knowledgeLimit = 3

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	AgentID     string
	AgentName   string
	Description string
	Instruction string // static profile instruction text
	Model       string
	MaxTokens   int
	Temperature *float64

	// ToolsAvailable reports whether the MCP toolset connected at startup.
	// It only affects the composed instruction text; the registry itself is
	// already empty when the connection failed.
	ToolsAvailable bool
}

// RunResult is the outcome of processing a query.
type RunResult struct {
	Answer    string        `json:"answer"`
	SessionID string        `json:"sessionId"`
	Model     string        `json:"model,omitempty"`
	Usage     llm.Usage     `json:"usage"`
	Duration  time.Duration `json:"duration"`
}

// StreamCallback is called for each streaming event during RunStream.
type StreamCallback func(event llm.StreamEvent)

// Runner is the agent orchestration loop. It takes queries, composes the
// instruction, calls the LLM, executes tool calls, and returns answers.
type Runner struct {
	cfg       RunnerConfig
	client    llm.Client
	sessions  SessionStore
	tools     *ToolRegistry
	retriever Retriever
	log       *logging.Logger
}

// NewRunner creates an agent runner. retriever may be nil.
func NewRunner(
	cfg RunnerConfig,
	client llm.Client,
	sessions SessionStore,
	tools *ToolRegistry,
	retriever Retriever,
	log *logging.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		client:    client,
		sessions:  sessions,
		tools:     tools,
		retriever: retriever,
		log:       log.Agent(cfg.AgentID),
	}
}

// Config returns the runner configuration.
func (r *Runner) Config() RunnerConfig { return r.cfg }

// Instruction returns the composed instruction for a query without running
// it. Used by tests and the status command.
func (r *Runner) Instruction(ctx context.Context, query string) string {
	return BuildInstruction(InstructionConfig{
		Base:             r.cfg.Instruction,
		Tools:            r.tools.Definitions(),
		ToolsAvailable:   r.cfg.ToolsAvailable,
		KnowledgeContext: r.knowledgeContext(ctx, query),
	})
}

// Run processes a query and returns the agent's answer.
func (r *Runner) Run(ctx context.Context, q domain.Query) (*RunResult, error) {
	start := time.Now()

	session := r.session(q)

	r.log.Info().
		Str("sessionId", session.ID).
		Str("from", q.From).
		Int("historyLen", len(session.Messages)).
		Msg("processing query")

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleUser,
		Content:   q.Text,
		Timestamp: q.Timestamp,
	})

	system := r.Instruction(ctx, q.Text)

	var finalResp *llm.CompletionResponse
	for i := 0; i < maxToolIterations; i++ {
		resp, err := r.client.Complete(ctx, llm.CompletionRequest{
			Model:       r.cfg.Model,
			System:      system,
			Messages:    r.sessions.History(session.ID),
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM completion: %w", err)
		}
		finalResp = resp

		calls := parseToolCalls(resp.Content)
		if len(calls) == 0 {
			break
		}

		r.log.Info().Int("toolCalls", len(calls)).Msg("executing tool calls")

		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			Timestamp: time.Now(),
		})
		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleUser,
			Content:   formatToolResults(r.executeToolCalls(ctx, calls)),
			Timestamp: time.Now(),
		})
		// Loop to let the LLM process tool results.
	}

	if finalResp == nil {
		return nil, fmt.Errorf("no response from LLM")
	}

	answer := stripToolCalls(finalResp.Content)

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleAssistant,
		Content:   answer,
		Timestamp: time.Now(),
	})

	r.log.Info().
		Str("sessionId", session.ID).
		Str("model", finalResp.Model).
		Int("inputTokens", finalResp.Usage.InputTokens).
		Int("outputTokens", finalResp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("answer generated")

	return &RunResult{
		Answer:    answer,
		SessionID: session.ID,
		Model:     finalResp.Model,
		Usage:     finalResp.Usage,
		Duration:  time.Since(start),
	}, nil
}

// RunStream processes a query with streaming output. Text deltas are
// forwarded through cb as they arrive; tool rounds emit tool_start,
// tool_result and tool_error events.
func (r *Runner) RunStream(ctx context.Context, q domain.Query, cb StreamCallback) (*RunResult, error) {
	start := time.Now()

	session := r.session(q)

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleUser,
		Content:   q.Text,
		Timestamp: q.Timestamp,
	})

	system := r.Instruction(ctx, q.Text)

	var finalResp *llm.CompletionResponse
	for i := 0; i < maxToolIterations; i++ {
		ch, err := r.client.Stream(ctx, llm.CompletionRequest{
			Model:       r.cfg.Model,
			System:      system,
			Messages:    r.sessions.History(session.ID),
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
			Stream:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM stream: %w", err)
		}

		var full strings.Builder
		var streamResp *llm.CompletionResponse
		for evt := range ch {
			switch evt.Type {
			case "delta":
				full.WriteString(evt.Content)
				if cb != nil {
					cb(evt)
				}
			case "done":
				streamResp = evt.Response
			case "error":
				return nil, fmt.Errorf("stream error: %s", evt.Error)
			}
		}

		if streamResp == nil {
			streamResp = &llm.CompletionResponse{Model: r.cfg.Model}
		}
		if streamResp.Content == "" {
			streamResp.Content = full.String()
		}
		finalResp = streamResp

		calls := parseToolCalls(finalResp.Content)
		if len(calls) == 0 {
			break
		}

		if cb != nil {
			cb(llm.StreamEvent{
				Type:    "tool_start",
				Content: fmt.Sprintf("Executing %d tool(s)...", len(calls)),
			})
		}

		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleAssistant,
			Content:   finalResp.Content,
			Timestamp: time.Now(),
		})

		results := r.executeToolCalls(ctx, calls)
		if cb != nil {
			for _, tr := range results {
				if tr.Err != nil {
					cb(llm.StreamEvent{
						Type:    "tool_error",
						Content: fmt.Sprintf("Tool %s failed: %v", tr.Tool, tr.Err),
					})
				} else {
					cb(llm.StreamEvent{
						Type:    "tool_result",
						Content: fmt.Sprintf("Tool %s completed", tr.Tool),
					})
				}
			}
		}

		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleUser,
			Content:   formatToolResults(results),
			Timestamp: time.Now(),
		})
	}

	if finalResp == nil {
		return nil, fmt.Errorf("no response from LLM")
	}

	answer := stripToolCalls(finalResp.Content)

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleAssistant,
		Content:   answer,
		Timestamp: time.Now(),
	})

	return &RunResult{
		Answer:    answer,
		SessionID: session.ID,
		Model:     finalResp.Model,
		Usage:     finalResp.Usage,
		Duration:  time.Since(start),
	}, nil
}

func (r *Runner) session(q domain.Query) *domain.Session {
	key := domain.SessionKey{
		ChannelID: q.ChannelID,
		ChatID:    q.ChatID,
		SenderID:  q.From,
	}
	return r.sessions.GetOrCreate(key, r.cfg.AgentID)
}

// knowledgeContext retrieves knowledge chunks for a query. Retrieval errors
// degrade to an empty context, never fail the query.
func (r *Runner) knowledgeContext(ctx context.Context, query string) string {
	if r.retriever == nil {
		return ""
	}
	chunks, err := r.retriever.Retrieve(ctx, query, knowledgeLimit)
	if err != nil {
		r.log.Warn().Err(err).Msg("knowledge retrieval failed")
		return ""
	}
	return strings.Join(chunks, "\n\n---\n\n")
}

// toolCall is a parsed tool invocation from the LLM response.
type toolCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// toolResult holds the output from executing a tool.
type toolResult struct {
	Tool   string
	Output string
	Err    error
}

// toolCallRe matches ```tool_call\n{...}\n``` blocks in LLM output.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\n(\\{.*?\\})\n\\s*```")

// blankLineCollapseRe collapses 3+ consecutive newlines to a single blank line.
var blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)

// parseToolCalls extracts tool_call blocks from LLM response text.
func parseToolCalls(text string) []toolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	var calls []toolCall
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		var tc toolCall
		if err := json.Unmarshal([]byte(match[1]), &tc); err != nil {
			continue
		}
		if tc.Tool != "" {
			calls = append(calls, tc)
		}
	}
	return calls
}

// executeToolCalls runs each tool and returns results.
func (r *Runner) executeToolCalls(ctx context.Context, calls []toolCall) []toolResult {
	var results []toolResult
	for _, tc := range calls {
		tool, ok := r.tools.Get(tc.Tool)
		if !ok {
			results = append(results, toolResult{
				Tool: tc.Tool,
				Err:  fmt.Errorf("unknown tool: %s", tc.Tool),
			})
			continue
		}

		r.log.Debug().Str("tool", tc.Tool).Msg("executing tool")
		output, err := tool.Execute(ctx, string(tc.Input))
		results = append(results, toolResult{
			Tool:   tc.Tool,
			Output: output,
			Err:    err,
		})
	}
	return results
}

// formatToolResults renders tool execution results for the LLM.
func formatToolResults(results []toolResult) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s\n", r.Tool)
		if r.Err != nil {
			fmt.Fprintf(&b, "Error: %s\n", r.Err)
		} else {
			b.WriteString(r.Output)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// stripToolCalls removes tool_call code blocks from the final answer,
// leaving surrounding text.
func stripToolCalls(text string) string {
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
