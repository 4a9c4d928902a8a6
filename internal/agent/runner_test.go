package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisat/agentkit/internal/domain"
	"github.com/unisat/agentkit/internal/llm"
	"github.com/unisat/agentkit/internal/logging"
)

type stubTool struct {
	name    string
	desc    string
	execute func(ctx context.Context, input string) (string, error)
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return t.desc }
func (t *stubTool) InputSchema() string { return `{"type":"object"}` }
func (t *stubTool) Execute(ctx context.Context, input string) (string, error) {
	return t.execute(ctx, input)
}

func testQuery(text string) domain.Query {
	return domain.Query{
		ID:        "q-1",
		ChannelID: "http",
		ChatID:    "chat-1",
		From:      "tester",
		Text:      text,
		Timestamp: time.Now(),
	}
}

func newTestRunner(client llm.Client, tools *ToolRegistry, available bool) *Runner {
	if tools == nil {
		tools = NewToolRegistry()
	}
	return NewRunner(
		RunnerConfig{
			AgentID:        "bitcoin-query",
			AgentName:      "Bitcoin Query Assistant",
			Instruction:    "你是比特币链上数据查询助手。",
			Model:          "doubao-seed-1-6",
			MaxTokens:      4096,
			ToolsAvailable: available,
		},
		client,
		NewMemorySessionStore(),
		tools,
		nil,
		logging.New(nil, "silent"),
	)
}

func TestRunnerSimpleAnswer(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: "当前区块高度是 850000。",
				Model:   "doubao-seed-1-6",
				Usage:   llm.Usage{InputTokens: 10, OutputTokens: 8},
			}, nil
		},
	}
	r := newTestRunner(client, nil, true)

	res, err := r.Run(context.Background(), testQuery("当前比特币区块高度是多少？"))
	require.NoError(t, err)
	assert.Equal(t, "当前区块高度是 850000。", res.Answer)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 10, res.Usage.InputTokens)
}

func TestRunnerToolCallLoop(t *testing.T) {
	tools := NewToolRegistry()
	var gotInput string
	tools.Register(&stubTool{
		name: "get_block_height",
		desc: "Get the current block height.",
		execute: func(ctx context.Context, input string) (string, error) {
			gotInput = input
			return `{"height": 850123}`, nil
		},
	})

	callCount := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			if callCount == 1 {
				return &llm.CompletionResponse{
					Content: "Let me check.\n\n```tool_call\n{\"tool\": \"get_block_height\", \"input\": {}}\n```",
				}, nil
			}
			// Second round sees the tool results in history.
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "850123")
			return &llm.CompletionResponse{Content: "区块高度是 850123。"}, nil
		},
	}
	r := newTestRunner(client, tools, true)

	res, err := r.Run(context.Background(), testQuery("当前比特币区块高度是多少？"))
	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
	assert.Equal(t, "区块高度是 850123。", res.Answer)
	assert.JSONEq(t, `{}`, gotInput)
}

func TestRunnerToolCallIterationCap(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(&stubTool{
		name: "loop_tool",
		desc: "always called",
		execute: func(ctx context.Context, input string) (string, error) {
			return "ok", nil
		},
	})

	callCount := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			return &llm.CompletionResponse{
				Content: "```tool_call\n{\"tool\": \"loop_tool\", \"input\": {}}\n```",
			}, nil
		},
	}
	r := newTestRunner(client, tools, true)

	_, err := r.Run(context.Background(), testQuery("loop"))
	require.NoError(t, err)
	assert.Equal(t, maxToolIterations, callCount)
}

func TestRunnerUnknownTool(t *testing.T) {
	callCount := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			if callCount == 1 {
				return &llm.CompletionResponse{
					Content: "```tool_call\n{\"tool\": \"no_such_tool\", \"input\": {}}\n```",
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "unknown tool: no_such_tool")
			return &llm.CompletionResponse{Content: "抱歉，该工具不可用。"}, nil
		},
	}
	r := newTestRunner(client, nil, true)

	res, err := r.Run(context.Background(), testQuery("query"))
	require.NoError(t, err)
	assert.Equal(t, "抱歉，该工具不可用。", res.Answer)
}

func TestRunnerToolError(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(&stubTool{
		name: "broken_tool",
		desc: "fails",
		execute: func(ctx context.Context, input string) (string, error) {
			return "", fmt.Errorf("upstream timeout")
		},
	})

	callCount := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			if callCount == 1 {
				return &llm.CompletionResponse{
					Content: "```tool_call\n{\"tool\": \"broken_tool\", \"input\": {}}\n```",
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "upstream timeout")
			return &llm.CompletionResponse{Content: "查询失败。"}, nil
		},
	}
	r := newTestRunner(client, tools, true)

	_, err := r.Run(context.Background(), testQuery("query"))
	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
}

func TestRunnerLLMError(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, fmt.Errorf("429 too many requests")
		},
	}
	r := newTestRunner(client, nil, true)

	_, err := r.Run(context.Background(), testQuery("query"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRunnerDegradedInstruction(t *testing.T) {
	var gotSystem string
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			gotSystem = req.System
			return &llm.CompletionResponse{Content: "answer"}, nil
		},
	}
	r := newTestRunner(client, nil, false)

	_, err := r.Run(context.Background(), testQuery("query"))
	require.NoError(t, err)
	assert.Contains(t, gotSystem, DegradedWarning)
}

func TestRunnerAvailableInstructionHasNoWarning(t *testing.T) {
	var gotSystem string
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			gotSystem = req.System
			return &llm.CompletionResponse{Content: "answer"}, nil
		},
	}
	r := newTestRunner(client, nil, true)

	_, err := r.Run(context.Background(), testQuery("query"))
	require.NoError(t, err)
	assert.NotContains(t, gotSystem, DegradedWarning)
}

type stubRetriever struct {
	chunks []string
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	return s.chunks, s.err
}

func TestRunnerKnowledgeContext(t *testing.T) {
	var gotSystem string
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			gotSystem = req.System
			return &llm.CompletionResponse{Content: "answer"}, nil
		},
	}
	r := newTestRunner(client, nil, true)
	r.retriever = &stubRetriever{chunks: []string{"ORDI 是首个 BRC20 代币。"}}

	_, err := r.Run(context.Background(), testQuery("分析一下 ORDI"))
	require.NoError(t, err)
	assert.Contains(t, gotSystem, "## 参考知识")
	assert.Contains(t, gotSystem, "ORDI 是首个 BRC20 代币。")
}

func TestRunnerKnowledgeErrorDegrades(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.NotContains(t, req.System, "## 参考知识")
			return &llm.CompletionResponse{Content: "answer"}, nil
		},
	}
	r := newTestRunner(client, nil, true)
	r.retriever = &stubRetriever{err: fmt.Errorf("fts query failed")}

	res, err := r.Run(context.Background(), testQuery("query"))
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Answer)
}

func TestRunnerSessionContinuity(t *testing.T) {
	var lastHistory []llm.Message
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			lastHistory = req.Messages
			return &llm.CompletionResponse{Content: "answer"}, nil
		},
	}
	r := newTestRunner(client, nil, true)

	res1, err := r.Run(context.Background(), testQuery("first"))
	require.NoError(t, err)
	res2, err := r.Run(context.Background(), testQuery("second"))
	require.NoError(t, err)

	assert.Equal(t, res1.SessionID, res2.SessionID)
	// History for turn two: user, assistant, user.
	require.Len(t, lastHistory, 3)
	assert.Equal(t, "first", lastHistory[0].Content)
	assert.Equal(t, "answer", lastHistory[1].Content)
	assert.Equal(t, "second", lastHistory[2].Content)
}

func TestRunStream(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			ch := make(chan llm.StreamEvent, 3)
			ch <- llm.StreamEvent{Type: "delta", Content: "区块高度"}
			ch <- llm.StreamEvent{Type: "delta", Content: "是 850000。"}
			ch <- llm.StreamEvent{
				Type:     "done",
				Response: &llm.CompletionResponse{Content: "区块高度是 850000。", Model: "doubao-seed-1-6"},
			}
			close(ch)
			return ch, nil
		},
	}
	r := newTestRunner(client, nil, true)

	var deltas []string
	res, err := r.RunStream(context.Background(), testQuery("query"), func(evt llm.StreamEvent) {
		if evt.Type == "delta" {
			deltas = append(deltas, evt.Content)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"区块高度", "是 850000。"}, deltas)
	assert.Equal(t, "区块高度是 850000。", res.Answer)
}

func TestRunStreamToolRound(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(&stubTool{
		name: "get_fee_rate",
		desc: "fee rates",
		execute: func(ctx context.Context, input string) (string, error) {
			return `{"fast": 12}`, nil
		},
	})

	round := 0
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			round++
			ch := make(chan llm.StreamEvent, 2)
			if round == 1 {
				ch <- llm.StreamEvent{
					Type:     "done",
					Response: &llm.CompletionResponse{Content: "```tool_call\n{\"tool\": \"get_fee_rate\", \"input\": {}}\n```"},
				}
			} else {
				ch <- llm.StreamEvent{Type: "delta", Content: "推荐费率 12 sat/vB。"}
				ch <- llm.StreamEvent{
					Type:     "done",
					Response: &llm.CompletionResponse{Content: "推荐费率 12 sat/vB。"},
				}
			}
			close(ch)
			return ch, nil
		},
	}
	r := newTestRunner(client, tools, true)

	var events []string
	res, err := r.RunStream(context.Background(), testQuery("查询当前网络手续费"), func(evt llm.StreamEvent) {
		events = append(events, evt.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, "推荐费率 12 sat/vB。", res.Answer)
	assert.Contains(t, events, "tool_start")
	assert.Contains(t, events, "tool_result")
}

func TestParseToolCalls(t *testing.T) {
	text := "Some text.\n\n```tool_call\n{\"tool\": \"a\", \"input\": {\"x\": 1}}\n```\n\nmore\n\n```tool_call\n{\"tool\": \"b\", \"input\": {}}\n```"
	calls := parseToolCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Tool)
	assert.Equal(t, "b", calls[1].Tool)

	var input map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Input, &input))
	assert.Equal(t, float64(1), input["x"])
}

func TestParseToolCallsIgnoresMalformed(t *testing.T) {
	text := "```tool_call\n{not json}\n```\n\n```tool_call\n{\"tool\": \"ok\", \"input\": {}}\n```"
	calls := parseToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "ok", calls[0].Tool)
}

func TestStripToolCalls(t *testing.T) {
	text := "Before.\n\n```tool_call\n{\"tool\": \"a\", \"input\": {}}\n```\n\nAfter."
	assert.Equal(t, "Before.\n\nAfter.", stripToolCalls(text))
}
