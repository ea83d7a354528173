package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func versionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "versions",
		Usage: "List the configured catalog versions, default first",
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			for i, v := range cfg.Catalog.Versions {
				if i == 0 {
					fmt.Fprintf(c.Root().Writer, "%s (default)\n", v)
					continue
				}
				fmt.Fprintln(c.Root().Writer, v)
			}
			return nil
		},
	}
}
