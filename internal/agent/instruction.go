package agent

import (
	"fmt"
	"strings"
)

// DegradedWarning is appended to the instruction when the MCP toolset is
// unavailable, so the agent itself can explain the reduced capability.
const DegradedWarning = "**注意：当前未连接到 UniSat MCP Server，工具功能不可用。请设置 UNISAT_MCP_URL 环境变量后重启。**"

// InstructionConfig controls instruction composition.
type InstructionConfig struct {
	// Base is the agent profile's static instruction text.
	Base string

	// Tools are the bridged MCP tool definitions, empty when degraded.
	Tools []ToolDef

	// ToolsAvailable reports whether the MCP toolset connected.
	ToolsAvailable bool

	// KnowledgeContext is retrieved knowledge base text, empty when the
	// agent has no knowledge base or nothing matched.
	KnowledgeContext string
}

// BuildInstruction composes the final system prompt. It is a pure function
// of its config: the same inputs always produce the same text.
func BuildInstruction(cfg InstructionConfig) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(cfg.Base))
	b.WriteString("\n")

	if len(cfg.Tools) > 0 {
		b.WriteString("\n## Available Tools\n\n")
		b.WriteString("You can call tools by outputting a fenced code block with the language tag `tool_call`:\n\n")
		b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
		b.WriteString("After a tool is executed, the result will be provided. You may call multiple tools before giving your final response.\n\n")
		for _, t := range cfg.Tools {
			fmt.Fprintf(&b, "### %s\n%s\n", t.Name, t.Description)
			if t.InputSchema != "" {
				fmt.Fprintf(&b, "Input schema: %s\n", t.InputSchema)
			}
			b.WriteString("\n")
		}
	}

	if cfg.KnowledgeContext != "" {
		b.WriteString("\n## 参考知识\n\n")
		b.WriteString("以下内容来自本地知识库，回答时请优先参考：\n\n")
		b.WriteString(cfg.KnowledgeContext)
		b.WriteString("\n")
	}

	if !cfg.ToolsAvailable {
		b.WriteString("\n\n")
		b.WriteString(DegradedWarning)
		b.WriteString("\n")
	}

	return b.String()
}
