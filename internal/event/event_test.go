package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionStart(t *testing.T) {
	data := []byte(`{"type":"session_start","session_id":"abc","cwd":"/repo","model":"opus"}`)

	ev, err := Parse(data)
	require.NoError(t, err)

	ss, ok := ev.(SessionStart)
	require.True(t, ok)
	assert.Equal(t, "abc", ss.SessionID)
	assert.Equal(t, "/repo", ss.CWD)
	assert.Equal(t, "opus", ss.Model)
}

func TestParseToolUse(t *testing.T) {
	data := []byte(`{"type":"tool_use","session_id":"abc","tool_name":"Read","file_path":"/repo/main.go","timestamp":"2026-08-26T10:00:00Z"}`)

	ev, err := Parse(data)
	require.NoError(t, err)

	tu, ok := ev.(ToolUse)
	require.True(t, ok)
	assert.Equal(t, "abc", tu.SessionID)
	assert.Equal(t, "Read", tu.ToolName)
	assert.Equal(t, "/repo/main.go", tu.FilePath)
	assert.Equal(t, "2026-08-26T10:00:00Z", tu.Timestamp)
}

func TestParseToleratesUnknownFields(t *testing.T) {
	data := []byte(`{"type":"tool_use","session_id":"abc","tool_name":"Read","file_path":"/a","extra":{"nested":true}}`)

	_, err := Parse(data)
	assert.NoError(t, err)
}

func TestParseUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"session_end","session_id":"abc"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_end")
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	events := []AgentEvent{
		SessionStart{SessionID: "s1", CWD: "/repo"},
		ToolUse{SessionID: "s1", ToolName: "Edit", FilePath: "/repo/a.go", Timestamp: "t"},
	}
	for _, ev := range events {
		data, err := Marshal(ev)
		require.NoError(t, err)

		back, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, ev, back)
	}
}

func TestMarshalTypeTag(t *testing.T) {
	data, err := Marshal(ToolUse{SessionID: "s1", ToolName: "Read", FilePath: "/a"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"tool_use"`)

	data, err = Marshal(SessionStart{SessionID: "s1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"session_start"`)
}
