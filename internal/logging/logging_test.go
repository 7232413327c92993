package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Verbosity(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Info().Str("symbol", "AAA").Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "AAA")

	buf.Reset()
	verbose := New(&buf, true)
	verbose.Debug().Msg("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestNewWithLevel_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithLevel(&buf, "WARN", true)
	require.NoError(t, err)

	log.Info().Msg("dropped")
	log.Warn().Str("reason", "insufficient history").Msg("skipped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "skipped", entry["message"])
	assert.Equal(t, "valuescreen", entry["service"])
	assert.Equal(t, "insufficient history", entry["reason"])
}

func TestNewWithLevel_Rejects(t *testing.T) {
	_, err := NewWithLevel(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}
