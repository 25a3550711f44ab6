package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.WithName("resolver").Info("resolved cloud resource", "cloudId", "abc-123")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "resolved cloud resource", entry["msg"])
	assert.Equal(t, "abc-123", entry["cloudId"])
	assert.Equal(t, "resolver", entry["logger"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "error", Format: "text", Output: &buf})
	require.NoError(t, err)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Error(nil, "visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))
}

func TestNew_DebugIsV1(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "text", Output: &buf})
	require.NoError(t, err)

	log.V(1).Info("request details")
	assert.Contains(t, buf.String(), "request details")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Level: "trace"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
