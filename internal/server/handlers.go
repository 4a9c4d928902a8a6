package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unisat/agentkit/internal/domain"
	"github.com/unisat/agentkit/internal/llm"
	"github.com/unisat/agentkit/internal/version"
)

// chatRequest is the POST /chat payload.
type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

// chatResponse is the POST /chat response.
type chatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"sessionId"`
	Model     string `json:"model,omitempty"`
}

// errorResponse is the JSON error envelope for all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse is the GET /health payload.
type healthResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptimeSeconds"`

	Agent           string `json:"agent,omitempty"`
	MCPEndpoint     string `json:"mcpEndpoint,omitempty"`
	MCPConnected    bool   `json:"mcpConnected"`
	KnowledgeLoaded bool   `json:"knowledgeLoaded"`
	KnowledgeChunks int    `json:"knowledgeChunks,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "agent not available")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, s.buildQuery(req))
	if err != nil {
		s.log.Error().Err(err).Msg("query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    res.Answer,
		SessionID: res.SessionID,
		Model:     res.Model,
	})
}

// streamFrame is one WebSocket message on /chat/stream.
type streamFrame struct {
	Type      string `json:"type"` // "delta", "tool_start", "tool_result", "tool_error", "done", "error"
	Content   string `json:"content,omitempty"`
	Answer    string `json:"answer,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleChatStream upgrades to WebSocket, reads a single chat request, and
// streams the agent's response as JSON frames ending with "done" or "error".
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "agent not available")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var req chatRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(streamFrame{Type: "error", Error: "invalid request frame"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		conn.WriteJSON(streamFrame{Type: "error", Error: "query is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	res, err := s.runner.RunStream(ctx, s.buildQuery(req), func(evt llm.StreamEvent) {
		conn.WriteJSON(streamFrame{Type: evt.Type, Content: evt.Content})
	})
	if err != nil {
		s.log.Error().Err(err).Msg("stream query failed")
		conn.WriteJSON(streamFrame{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(streamFrame{
		Type:      "done",
		Answer:    res.Answer,
		SessionID: res.SessionID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Version:         version.Version,
		Uptime:          s.uptime().Seconds(),
		Agent:           s.status.AgentID,
		MCPEndpoint:     s.status.MCPEndpoint,
		MCPConnected:    s.status.MCPConnected,
		KnowledgeLoaded: s.status.KnowledgeLoaded,
		KnowledgeChunks: s.status.KnowledgeChunks,
	})
}

// buildQuery maps a chat request to a domain query. All HTTP traffic shares
// the "http" channel; the session ID field lets clients keep separate
// conversations.
func (s *Server) buildQuery(req chatRequest) domain.Query {
	chatID := req.SessionID
	if chatID == "" {
		chatID = "default"
	}
	return domain.Query{
		ID:        uuid.New().String(),
		ChannelID: "http",
		ChatID:    chatID,
		Text:      req.Query,
		Timestamp: time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
