package log_test

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/carbon/pkg/carbon/log"
)

type fakeWorld struct{}

func (fakeWorld) ComponentNames() []string { return []string{"children", "parent", "pose"} }
func (fakeWorld) SystemNames() []string    { return []string{"pose_propagation"} }

func TestWorldSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	log.World(&logger, fakeWorld{}, zerolog.InfoLevel)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.InDelta(t, 3, entry["total_components"], 0)
	assert.InDelta(t, 1, entry["total_systems"], 0)
	assert.Equal(t, []any{"pose_propagation"}, entry["systems"])
}

func TestSubLoggers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sys := log.CreateSystemLogger(&logger, "despawn")
	trace := log.CreateTraceLogger(sys, "abc")
	trace.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"system":"despawn"`)
	assert.Contains(t, buf.String(), `"trace_id":"abc"`)
}
