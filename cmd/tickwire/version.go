package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "tickwire %s (commit: %s, %s)\n", Version, commit, runtime.Version())
			return err
		},
	}
}
