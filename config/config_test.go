package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/tickwire/stream"
	"github.com/arloliu/tickwire/transport"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tickwire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "ws://kereon.lisptick.org:8080/ws", cfg.Transport().URL())
	require.Equal(t, int64(stream.DefaultMaxDecoded), cfg.Limits.MaxDecoded)

	_, err := stream.New(cfg.StreamOptions()...)
	require.NoError(t, err)
}

func TestLoad_FullConfig(t *testing.T) {
	content := `server:
  host: localhost
  port: 9090
  secure: true
  handshake_timeout: 5s
  timeout: 1m30s
limits:
  max_decoded: 1000
  max_buffer_bytes: 4096
log:
  level: debug
capture:
  compression: zstd
`
	cfg, err := Load(writeTemp(t, content))
	require.NoError(t, err)

	require.Equal(t, "localhost", cfg.Server.Host)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, transport.DefaultPath, cfg.Server.Path, "unset values keep defaults")
	require.Equal(t, 5*time.Second, cfg.Server.HandshakeTimeout.Duration)
	require.Equal(t, 90*time.Second, cfg.Server.Timeout.Duration)
	require.Equal(t, int64(1000), cfg.Limits.MaxDecoded)
	require.Equal(t, 4096, cfg.Limits.MaxBufferBytes)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "zstd", cfg.Capture.Compression)
	require.Equal(t, "wss://localhost:9090/ws", cfg.Transport().URL())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "not found")

	tests := map[string]string{
		"yaml":        "server: [",
		"duration":    "server:\n  timeout: soon\n",
		"port":        "server:\n  port: 70000\n",
		"host":        "server:\n  host: \"\"\n",
		"max_decoded": "limits:\n  max_decoded: 0\n",
		"compression": "capture:\n  compression: gzip\n",
		"level":       "log:\n  level: verbose\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeTemp(t, content))
			require.Error(t, err)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TICKWIRE_HOST", "lisptick.internal")
	t.Setenv("TICKWIRE_EMPTY", "")

	require.Equal(t, "host: lisptick.internal", ExpandEnv("host: ${TICKWIRE_HOST}"))
	require.Equal(t, "port: 8081", ExpandEnv("port: ${TICKWIRE_PORT_UNSET:-8081}"))
	require.Equal(t, "x: y", ExpandEnv("x: ${TICKWIRE_EMPTY:-y}"))
	require.Equal(t, "x: ", ExpandEnv("x: ${TICKWIRE_UNSET}"))

	cfg, err := Parse([]byte("server:\n  host: ${TICKWIRE_HOST}\n"))
	require.NoError(t, err)
	require.Equal(t, "lisptick.internal", cfg.Server.Host)
}

func TestDuration_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(Default().Server)
	require.NoError(t, err)
	require.Contains(t, string(out), "handshake_timeout: 45s")
}
