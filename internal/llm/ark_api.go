package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ArkAPIClient is a direct HTTP client for an OpenAI-compatible
// chat-completions API (Volcengine Ark by default).
type ArkAPIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewArkAPIClient creates a chat-completions client.
// baseURL should be like "https://ark.cn-beijing.volces.com/api/v3".
func NewArkAPIClient(baseURL, apiKey, model string) *ArkAPIClient {
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &ArkAPIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type arkMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type arkRequest struct {
	Model       string       `json:"model"`
	Messages    []arkMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type arkResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      arkMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type arkStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *ArkAPIClient) buildBody(req CompletionRequest, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	msgs := make([]arkMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, arkMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, arkMessage{Role: m.Role, Content: m.Content})
	}

	return json.Marshal(arkRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
}

func (a *ArkAPIClient) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	return httpReq, nil
}

// Complete sends a non-streaming completion request.
func (a *ArkAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := a.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := a.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result arkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}

	model := result.Model
	if model == "" {
		model = a.model
	}

	return &CompletionResponse{
		Content:    result.Choices[0].Message.Content,
		StopReason: result.Choices[0].FinishReason,
		Model:      model,
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// Stream sends a streaming completion request. Events arrive as SSE
// "data:" lines, terminated by "[DONE]".
func (a *ArkAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	payload, err := a.buildBody(req, true)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := a.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan StreamEvent)
	go a.streamRequest(ctx, eventChan, httpReq)
	return eventChan, nil
}

func (a *ArkAPIClient) streamRequest(ctx context.Context, events chan<- StreamEvent, httpReq *http.Request) {
	defer close(events)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		events <- StreamEvent{Type: "error", Error: err.Error()}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		events <- StreamEvent{Type: "error", Error: fmt.Sprintf("API error (%d): %s", resp.StatusCode, string(body))}
		return
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			events <- StreamEvent{Type: "error", Error: ctx.Err().Error()}
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk arkStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			events <- StreamEvent{Type: "delta", Content: delta}
		}
	}

	if err := scanner.Err(); err != nil {
		events <- StreamEvent{Type: "error", Error: err.Error()}
		return
	}

	events <- StreamEvent{
		Type: "done",
		Response: &CompletionResponse{
			Content: full.String(),
			Model:   a.model,
		},
	}
}

// Name returns the provider name.
func (a *ArkAPIClient) Name() string {
	return "ark"
}
