// Package config resolves agentkit configuration from defaults, an optional
// YAML file, and environment variables. Environment always wins.
package config

import (
	"fmt"
	"time"
)

// Default endpoint of the UniSat MCP tool server. Overridden by UNISAT_MCP_URL.
const DefaultMCPURL = "http://localhost:3000/mcp"

// DefaultKnowledgePath is the knowledge base directory used by the analyst
// agent when BRC20_KB_PATH is not set.
const DefaultKnowledgePath = "knowledgebase_docs"

// Config is the root configuration for agentkit.
type Config struct {
	MCP       MCPConfig       `yaml:"mcp,omitempty"`
	Knowledge KnowledgeConfig `yaml:"knowledge,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	DataDir   string          `yaml:"dataDir,omitempty"`
}

// MCPConfig points at the remote MCP tool server.
type MCPConfig struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// KnowledgeConfig controls knowledge base ingestion for the analyst agent.
type KnowledgeConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ServerConfig controls the agent HTTP server.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// SessionConfig selects the short-term memory backend.
type SessionConfig struct {
	Backend string `yaml:"backend,omitempty"` // "local" | "sqlite"
}

// LLMConfig configures the external chat-completions API the agents
// delegate reasoning to.
type LLMConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with documented defaults applied.
func Defaults() Config {
	return Config{
		MCP: MCPConfig{
			URL:     DefaultMCPURL,
			Timeout: 30 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			Path: DefaultKnowledgePath,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Session: SessionConfig{
			Backend: "local",
		},
		LLM: LLMConfig{
			BaseURL: "https://ark.cn-beijing.volces.com/api/v3",
			Model:   "doubao-seed-1-6",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.MCP.URL == "" {
		issues = append(issues, ValidationIssue{
			Path: "mcp.url", Message: "MCP server URL must not be empty",
		})
	}
	if cfg.MCP.Timeout < 0 {
		issues = append(issues, ValidationIssue{
			Path: "mcp.timeout", Message: "timeout must not be negative",
		})
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path: "server.port", Message: fmt.Sprintf("port %d out of range", cfg.Server.Port),
		})
	}
	switch cfg.Session.Backend {
	case "local", "sqlite":
	default:
		issues = append(issues, ValidationIssue{
			Path:    "session.backend",
			Message: fmt.Sprintf("unknown backend %q (expected local or sqlite)", cfg.Session.Backend),
		})
	}

	return issues
}
