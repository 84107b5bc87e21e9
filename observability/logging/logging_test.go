package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("launchd", "test", Options{Writer: &buf, Level: "debug"})
	logger.Debug("deposit accepted", "sale", "0xabc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "deposit accepted", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "launchd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "0xabc", line["sale"])
	require.Contains(t, line, "timestamp")
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("launchd", "", Options{Writer: &buf, Level: "warn"})
	logger.Info("dropped")
	require.Zero(t, buf.Len())
	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("Authorization", "Bearer abc").Value.String())
	require.Equal(t, "0xabc", MaskField("sale", "0xabc").Value.String())
	require.Equal(t, "", MaskField("token", "").Value.String())
	require.Equal(t, slog.LevelError, ParseLevel("ERROR"))
}
