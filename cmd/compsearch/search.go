package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/compsearch"
	"github.com/kailas-cloud/compsearch/internal/config"
	logpkg "github.com/kailas-cloud/compsearch/internal/logger"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Run one search and print a page of results",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "catalog-version",
				Usage: "Catalog version (default: first configured)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "components, or instances with QUERY as ClassName[:text]",
				Value: string(compsearch.Components),
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "1-based page to print",
				Value: 1,
			},
			&cli.StringSliceFlag{
				Name:  "select",
				Usage: "Identity to add to the export selection (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "select-all",
				Usage: "Select every result for export",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write build.gradle for the selection to this path (- for stdout)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the view as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return errors.New("search: QUERY argument required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := logpkg.NewLogger(logpkg.EnvCLI, searchLogLevel(c))
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			client, err := compsearch.New(append(clientOptions(cfg), compsearch.WithLogger(logger))...)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			return runSearch(ctx, c, client)
		},
	}
}

// searchLogLevel keeps the CLI at warn unless --log-level is given; the
// config file level targets the server.
func searchLogLevel(c *cli.Command) string {
	if !c.IsSet("log-level") {
		return ""
	}
	return c.String("log-level")
}

// clientOptions maps file configuration onto SDK options.
func clientOptions(cfg config.Config) []compsearch.Option {
	opts := []compsearch.Option{
		compsearch.WithVersions(cfg.Catalog.Versions...),
		compsearch.WithURLTemplate(cfg.Catalog.URLTemplate),
		compsearch.WithBaseDir(cfg.Catalog.BaseDir),
		compsearch.WithHTTPTimeout(time.Duration(cfg.Catalog.HTTPTimeoutSec) * time.Second),
		compsearch.WithPagination(cfg.Search.PageSize, cfg.Search.WindowLimit),
		compsearch.WithResponseTimeout(cfg.Search.ResponseTimeout()),
		compsearch.WithInboxSize(cfg.Search.InboxSize),
		compsearch.WithExport(cfg.Export.Group, cfg.Export.Version, cfg.Export.Repositories...),
	}
	if cfg.Cache.Enabled && len(cfg.Cache.Addrs) > 0 {
		addr := cfg.Cache.Addrs[0]
		switch cfg.Cache.Driver {
		case "redis":
			opts = append(opts, compsearch.WithRedisCache(addr, cfg.Cache.Password, cfg.Cache.TTL()))
		default:
			opts = append(opts, compsearch.WithValkeyCache(addr, cfg.Cache.Password, cfg.Cache.TTL()))
		}
		if cfg.Cache.KeyPrefix != "" {
			opts = append(opts, compsearch.WithCacheKeyPrefix(cfg.Cache.KeyPrefix))
		}
	}
	return opts
}

func runSearch(ctx context.Context, c *cli.Command, client *compsearch.Client) error {
	s := client.NewSession()
	defer func() { _ = s.Close() }()

	query := strings.Join(c.Args().Slice(), " ")
	if v, err := s.Search(ctx, query, c.String("catalog-version"), compsearch.Mode(c.String("mode"))); err != nil {
		if errors.Is(err, compsearch.ErrValidation) {
			return fmt.Errorf("invalid search: %s", formatErrors(v.Errors))
		}
		return err
	}
	v, err := s.Wait(ctx)
	if err != nil {
		return err
	}
	if msg := v.Errors["global"]; msg != "" {
		return errors.New(msg)
	}
	if p := c.Int("page"); p > 1 {
		v = s.SetPage(p - 1)
	}

	if c.Bool("select-all") {
		s.SelectAll()
	}
	for _, id := range c.StringSlice("select") {
		if _, err := s.Toggle(id); err != nil {
			return err
		}
	}

	out := c.Root().Writer
	if path := c.String("export"); path != "" {
		art, err := s.Export(ctx)
		if err != nil {
			return err
		}
		if path == "-" {
			_, err = out.Write(art.Body)
			return err
		}
		if err := os.WriteFile(path, art.Body, 0o644); err != nil { //nolint:gosec // user-chosen output file
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(c.Root().ErrWriter, "wrote %s (%d selected)\n", path, len(s.View().Selected))
		return nil
	}

	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.View())
	}
	return printView(out, v)
}

func printView(w io.Writer, v compsearch.View) error {
	if v.Total == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTITY\tALIAS\tARTIFACT\tSCORE")
	for _, it := range v.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\n", it.Identity, it.String("alias"), it.String("artifactId"), it.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d of %d, %d results\n", v.Page+1, v.PageCount, v.Total)
	return err
}

func formatErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for _, f := range []string{"query", "version", "mode", "global"} {
		if msg, ok := errs[f]; ok {
			parts = append(parts, f+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}
