// Package client is the test client for the agent server. It sends sample
// queries over HTTP and prints answers, isolating failures per query.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unisat/agentkit/internal/profile"
)

// DefaultBaseURL is where the client looks for the agent server when no
// address is given.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to a running agent server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. An empty baseURL falls
// back to DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts one query to /chat and returns the decoded JSON response.
func (c *Client) Send(ctx context.Context, query string) (map[string]any, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return result, nil
}

// RunSamples sends each of the profile's sample queries in order, printing
// answers to out. A failed query is reported and the run continues with the
// next one.
func RunSamples(ctx context.Context, out io.Writer, baseURL string, p profile.Profile) {
	c := New(baseURL, p.ClientTimeout)

	fmt.Fprintf(out, "%s - 测试客户端\n", p.Description)
	fmt.Fprintf(out, "服务器地址: %s\n", c.baseURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	for _, query := range p.SampleQueries {
		fmt.Fprintf(out, "\n用户: %s\n", query)
		fmt.Fprintln(out, strings.Repeat("-", 60))

		result, err := c.Send(ctx, query)
		if err != nil {
			fmt.Fprintf(out, "错误: %v\n", err)
			continue
		}

		if answer, ok := result["answer"].(string); ok {
			fmt.Fprintf(out, "助手: %s\n", answer)
		} else {
			raw, _ := json.Marshal(result)
			fmt.Fprintf(out, "响应: %s\n", raw)
		}
	}
}
