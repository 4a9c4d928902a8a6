// Package app assembles an agent from configuration: MCP toolset, knowledge
// base, session store, LLM client, and runner. Construction is explicit and
// one-shot; nothing connects as an import side effect.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/unisat/agentkit/internal/agent"
	"github.com/unisat/agentkit/internal/config"
	"github.com/unisat/agentkit/internal/knowledge"
	"github.com/unisat/agentkit/internal/llm"
	"github.com/unisat/agentkit/internal/logging"
	"github.com/unisat/agentkit/internal/mcp"
	"github.com/unisat/agentkit/internal/profile"
	"github.com/unisat/agentkit/internal/server"
	"github.com/unisat/agentkit/internal/store"
)

// App is a fully assembled agent ready to serve.
type App struct {
	Profile profile.Profile
	Runner  *agent.Runner
	Status  server.Status

	toolset *mcp.Toolset
	db      *store.DB
	log     *logging.Logger
}

// Build assembles an agent for the given profile. Tool server downtime and a
// missing knowledge directory degrade the agent instead of failing the
// build; a broken session database is fatal.
func Build(ctx context.Context, cfg config.Config, p profile.Profile, log *logging.Logger) (*App, error) {
	a := &App{Profile: p, log: log.Sub("app")}

	// MCP toolset: degrade, never crash.
	tools := agent.NewToolRegistry()
	mcpResult := mcp.Connect(ctx, cfg.MCP.URL, cfg.MCP.Timeout, log)
	if mcpResult.Connected() {
		a.toolset = mcpResult.Toolset
		a.toolset.RegisterAll(tools)
	}

	// SQLite backs the sqlite session backend and the knowledge index.
	needDB := cfg.Session.Backend == "sqlite" || p.UseKnowledge
	if needDB {
		db, err := store.Open(dbPath(cfg), log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = db
	}

	var sessions agent.SessionStore
	switch cfg.Session.Backend {
	case "sqlite":
		sessions = store.NewSQLiteSessionStore(a.db)
	default:
		sessions = agent.NewMemorySessionStore()
	}

	var retriever agent.Retriever
	knowledgeChunks := 0
	if p.UseKnowledge {
		kb := knowledge.NewBase(store.NewKnowledgeStore(a.db), log)
		stats, err := kb.LoadDirectory(cfg.Knowledge.Path)
		if err != nil {
			a.log.Warn().Err(err).Str("dir", cfg.Knowledge.Path).Msg("knowledge base load failed")
		}
		if stats.Loaded() {
			retriever = kb
			knowledgeChunks = stats.Chunks
		}
	}

	client := llm.NewArkAPIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)

	a.Runner = agent.NewRunner(
		agent.RunnerConfig{
			AgentID:        p.ID,
			AgentName:      p.Name,
			Description:    p.Description,
			Instruction:    p.Instruction,
			Model:          cfg.LLM.Model,
			MaxTokens:      4096,
			ToolsAvailable: mcpResult.Connected(),
		},
		client,
		sessions,
		tools,
		retriever,
		log,
	)

	a.Status = server.Status{
		AgentID:         p.ID,
		MCPEndpoint:     cfg.MCP.URL,
		MCPConnected:    mcpResult.Connected(),
		KnowledgeLoaded: retriever != nil,
		KnowledgeChunks: knowledgeChunks,
	}

	return a, nil
}

// Close releases the toolset session and the database.
func (a *App) Close() {
	if a.toolset != nil {
		a.toolset.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func dbPath(cfg config.Config) string {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "agentkit.db")
}
