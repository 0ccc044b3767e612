package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/alexschlessinger/companion/server"
	"github.com/urfave/cli/v3"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schemas of the request bodies",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(server.Schemas())
		},
	}
}
