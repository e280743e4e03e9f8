package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/streamhub/internal/registry"
	"github.com/nfrund/streamhub/internal/scenario"
)

func sampleReport() *scenario.Report {
	return &scenario.Report{
		Scenario: "counter",
		Steps: []scenario.StepResult{
			{Index: 0, Op: scenario.OpInitialize, OK: true},
			{Index: 1, Op: scenario.OpPublish, OK: false, Error: "observable not found: missing"},
		},
		Deliveries: []scenario.Delivery{
			{Step: 0, Subscriber: "a", Path: "counter", Value: 0},
			{Step: 1, Subscriber: "b", Path: "counter", Error: "division by zero"},
		},
		Stats: registry.Stats{Observables: 1, Subscribers: 2, Handles: 2},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Scenario: counter")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "observable not found: missing")
	assert.Contains(t, out, "error: division by zero")
	assert.Contains(t, out, "Observables: 1  Subscribers: 2  Handles: 2")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "counter", decoded["scenario"])
	assert.Equal(t, true, decoded["failed"])
	assert.Len(t, decoded["deliveries"], 2)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))

	t.Run("multi-byte runes stay whole", func(t *testing.T) {
		got := truncateString("héllo wörld ✓✓✓", 10)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, "héllo w...", got)
		assert.Equal(t, "✓✓", truncateString("✓✓✓✓", 2))
		assert.Equal(t, "✓✓✓", truncateString("✓✓✓", 3))
	})
}
