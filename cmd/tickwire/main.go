// Package main provides the tickwire CLI entrypoint.
//
// Usage:
//
//	tickwire <command> [options]
//
// Commands:
//   - query: send a LispTick query and print the decoded result
//   - replay: decode a recorded capture file
//   - encode: write a sample result stream, raw or as a capture
//   - version: print version information
//
// Exit codes:
//   - 0: success
//   - 1: the server answered with an error value, or the command failed
//   - 2: the stream was aborted by a local limit or a decode error
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is the tickwire release.
const Version = "0.3.0"

// commit is set via ldflags at build time.
var commit = "unknown"

const (
	exitFailure = 1
	exitAborted = 2
)

func newApp() *cli.App {
	return &cli.App{
		Name:           "tickwire",
		Usage:          "LispTick result stream client",
		Version:        fmt.Sprintf("%s (commit: %s)", Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			queryCommand(),
			replayCommand(),
			encodeCommand(),
			versionCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(exitFailure)
	}
}

// exitErrHandler prints the error and exits with the code carried by cli.Exit.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(c.App.ErrWriter, "error:", err)

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	os.Exit(exitFailure)
}
