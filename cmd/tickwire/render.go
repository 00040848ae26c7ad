package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/session"
)

type outputFormat string

const (
	formatJSON    outputFormat = "json"
	formatMsgpack outputFormat = "msgpack"
)

func parseFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return formatJSON, nil
	case "msgpack":
		return formatMsgpack, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json or msgpack)", s)
	}
}

// render writes the exported snapshot to w.
func render(w io.Writer, f outputFormat, snap session.Snapshot) error {
	out := snap.Export()

	switch f {
	case formatMsgpack:
		return msgpack.NewEncoder(w).Encode(out)
	default:
		data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)

		return err
	}
}

// exitError maps a stream error to the command exit code.
func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrServerError), errors.Is(err, errs.ErrTerminationRequested):
		return cli.Exit(err.Error(), exitFailure)
	case errors.Is(err, errs.ErrDecodeLimit), errors.Is(err, errs.ErrBufferOverflow), errs.IsFatal(err):
		return cli.Exit(err.Error(), exitAborted)
	default:
		return cli.Exit(err.Error(), exitFailure)
	}
}
