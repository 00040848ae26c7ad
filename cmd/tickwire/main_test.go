package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/tickwire/capture"
	"github.com/arloliu/tickwire/encoding"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/request"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

// runApp runs the CLI with args and returns stdout, stderr and the error.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"tickwire"}, args...))

	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()

	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "error %v carries no exit code", err)

	return exitErr.ExitCode()
}

func decodeJSON(t *testing.T, out string) session.Exported {
	t.Helper()

	var exported session.Exported
	require.NoError(t, sonic.Unmarshal([]byte(out), &exported))

	return exported
}

func TestParseFormat(t *testing.T) {
	f, err := parseFormat("")
	require.NoError(t, err)
	require.Equal(t, formatJSON, f)

	f, err = parseFormat("MSGPACK")
	require.NoError(t, err)
	require.Equal(t, formatMsgpack, f)

	_, err = parseFormat("yaml")
	require.Error(t, err)
}

func TestExitError(t *testing.T) {
	require.NoError(t, exitError(nil))
	require.Equal(t, exitFailure, exitCode(t, exitError(errs.ErrServerError)))
	require.Equal(t, exitFailure, exitCode(t, exitError(errs.ErrTerminationRequested)))
	require.Equal(t, exitAborted, exitCode(t, exitError(errs.ErrDecodeLimit)))
	require.Equal(t, exitAborted, exitCode(t, exitError(errs.ErrNegativeLength)))
	require.Equal(t, exitFailure, exitCode(t, exitError(errors.New("dial failed"))))
}

func TestVersion(t *testing.T) {
	out, _, err := runApp(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "tickwire "+Version)
}

func TestEncode_HexDump(t *testing.T) {
	out, _, err := runApp(t, "encode", "--points", "2")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "00000000"))

	_, _, err = runApp(t, "encode", "--capture")
	require.Error(t, err)
}

func TestEncodeReplay_Capture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.twcp")

	_, _, err := runApp(t, "encode", "--points", "5", "--out", path, "--capture", "--compression", "zstd", "--chunk", "9")
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	cp, err := capture.Read(file)
	require.NoError(t, err)
	require.Equal(t, len(sampleStream(5)), cp.Size())

	out, _, err := runApp(t, "replay", path)
	require.NoError(t, err)

	exported := decodeJSON(t, out)
	require.Len(t, exported.Series, 1)
	require.Equal(t, "close", exported.Series[0].Label)
	require.Len(t, exported.Series[0].Points, 5)
	require.Contains(t, out, "EURUSD")
}

func TestReplay_RawMsgpack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")

	_, _, err := runApp(t, "encode", "--points", "3", "--out", path)
	require.NoError(t, err)

	out, _, err := runApp(t, "replay", "--raw", "--chunk", "7", "--format", "msgpack", path)
	require.NoError(t, err)

	var exported session.Exported
	require.NoError(t, msgpack.Unmarshal([]byte(out), &exported))
	require.Len(t, exported.Series, 1)
	require.Len(t, exported.Series[0].Points, 3)
}

func TestReplay_Errors(t *testing.T) {
	_, _, err := runApp(t, "replay")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "limit.bin")
	_, _, err = runApp(t, "encode", "--points", "50", "--out", path)
	require.NoError(t, err)

	_, _, err = runApp(t, "replay", "--raw", "--max-decoded", "10", path)
	require.Equal(t, exitAborted, exitCode(t, err))

	_, _, err = runApp(t, "replay", path)
	require.ErrorIs(t, err, errs.ErrInvalidCaptureHeader)
}

// newServer answers one query with chunks as binary messages and reports the
// received code on codes.
func newServer(t *testing.T, codes chan<- string, chunks ...[]byte) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		code, err := request.Decode(msg)
		if err != nil {
			return
		}
		codes <- code

		for _, chunk := range chunks {
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestQuery(t *testing.T) {
	data := sampleStream(4)
	chunks := [][]byte{data[:20], data[20:50], data[50:]}

	codes := make(chan string, 1)
	url := newServer(t, codes, chunks...)
	capturePath := filepath.Join(t.TempDir(), "query.twcp")

	out, _, err := runApp(t, "query", "--url", url, "--capture", capturePath, "--compression", "lz4", "(+ 1 2)")
	require.NoError(t, err)
	require.Equal(t, "(+ 1 2)", <-codes)

	exported := decodeJSON(t, out)
	require.Len(t, exported.Series, 1)
	require.Len(t, exported.Series[0].Points, 4)

	file, err := os.Open(capturePath)
	require.NoError(t, err)
	defer file.Close()
	cp, err := capture.Read(file)
	require.NoError(t, err)
	require.Equal(t, chunks, cp.Chunks)
}

func TestQuery_ServerError(t *testing.T) {
	codes := make(chan string, 1)
	url := newServer(t, codes, encoding.NewBuilder().Value(0, value.Error("unknown symbol")).Bytes())

	out, _, err := runApp(t, "query", "--url", url)
	require.Equal(t, exitFailure, exitCode(t, err))
	require.Contains(t, err.Error(), "unknown symbol")
	require.Equal(t, request.DefaultCode, <-codes)

	exported := decodeJSON(t, out)
	require.True(t, exported.IsError)
	require.Equal(t, "unknown symbol", exported.Result)
}
