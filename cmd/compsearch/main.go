package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/compsearch/internal/config"
	"github.com/kailas-cloud/compsearch/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "compsearch",
		Usage:   "Search the Interlok component catalog",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name used to locate config/<env>.yaml",
				Sources: cli.EnvVars("ENV"),
				Value:   config.GetEnv(),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Explicit configuration file path (overrides --env lookup)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			searchCommand(),
			versionsCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "compsearch:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or config/<env>.yaml when it is not set.
func loadConfig(c *cli.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(c.String("env"))
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}
