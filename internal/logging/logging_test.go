package logging

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("info", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("stream closed", zap.Int64("values", 3))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "stream closed", entry["message"])
	require.EqualValues(t, 3, entry["values"])
	require.Contains(t, entry, "timestamp")
	require.NotContains(t, buf.String(), "hidden")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("verbose", &bytes.Buffer{})
	require.Error(t, err)
}
