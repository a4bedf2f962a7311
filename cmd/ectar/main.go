// Command ectar packages a directory tree into a Reed-Solomon-encoded
// shard archive, and extracts, lists, verifies, or reports on one --
// the CLI front end spec.md §6 describes as an external collaborator
// of the core pipeline package.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// VERSION is injected by build flags; left as a placeholder for
// unreleased builds the same way the teacher's client/main.go does.
var VERSION = "SELFBUILD"

func main() {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:    "ectar",
		Usage:   "pack and recover directory trees as Reed-Solomon shard archives",
		Version: VERSION,
		Commands: []*cli.Command{
			createCommand(logger),
			extractCommand(logger),
			listCommand(),
			verifyCommand(),
			infoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ectar: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
