// Package event defines the agent-activity events carried over the relay
// stream: a JSON union tagged by a "type" field, session_start and
// tool_use variants.
package event

import (
	"encoding/json"
	"fmt"
)

// AgentEvent is one parsed event from the stream.
type AgentEvent interface {
	agentEvent()
}

// SessionStart announces a new work session.
type SessionStart struct {
	SessionID string `json:"session_id"`
	CWD       string `json:"cwd,omitempty"`
	Model     string `json:"model,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ToolUse reports one tool invocation touching a file.
type ToolUse struct {
	SessionID string `json:"session_id"`
	ToolName  string `json:"tool_name"`
	FilePath  string `json:"file_path"`
	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (SessionStart) agentEvent() {}
func (ToolUse) agentEvent()      {}

const (
	typeSessionStart = "session_start"
	typeToolUse      = "tool_use"
)

// Parse decodes one wire message. Unknown fields are tolerated; unknown
// types are an error the caller logs and drops.
func Parse(data []byte) (AgentEvent, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	switch env.Type {
	case typeSessionStart:
		var ev SessionStart
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decoding session_start: %w", err)
		}
		return ev, nil
	case typeToolUse:
		var ev ToolUse
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decoding tool_use: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// Marshal encodes an event with its type tag.
func Marshal(ev AgentEvent) ([]byte, error) {
	switch v := ev.(type) {
	case SessionStart:
		return json.Marshal(struct {
			Type string `json:"type"`
			SessionStart
		}{typeSessionStart, v})
	case ToolUse:
		return json.Marshal(struct {
			Type string `json:"type"`
			ToolUse
		}{typeToolUse, v})
	default:
		return nil, fmt.Errorf("unknown event variant %T", ev)
	}
}
