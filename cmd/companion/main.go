package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:           "companion",
		Usage:          "Mental health companion chat backend",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			smokeCommand(),
			schemaCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
