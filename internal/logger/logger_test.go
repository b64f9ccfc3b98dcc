package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	l := For("coordinator")
	l.Info().Str("state", "refreshing").Msg("refresh started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "coordinator", line["component"])
	assert.Equal(t, "refreshing", line["state"])
	assert.Equal(t, "refresh started", line["message"])
}

func TestFormatLevel(t *testing.T) {
	assert.Contains(t, formatLevel("info"), "INF")
	assert.Contains(t, formatLevel("custom"), "CUS")
	assert.Equal(t, "7", formatLevel(7))
}
