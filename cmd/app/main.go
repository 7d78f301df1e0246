package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/licaudit/internal"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/parser"
	"github.com/starford/licaudit/internal/workspace"
	pkgconfig "github.com/starford/licaudit/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// openInput opens the input file named by the first argument.
func openInput(ctx context.Context, cmd *cli.Command) (*internal.Offline, error) {
	input := cmd.Args().First()
	if input == "" {
		return nil, errors.New("input file argument is required")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return internal.OpenOffline(ctx, input, logger)
}

func kindFlag(cmd *cli.Command) (models.Kind, error) {
	kind := models.Kind(cmd.String("kind"))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	return kind, nil
}

func printValue(cmd *cli.Command, v any) error {
	data, err := parser.Encode(parser.Format(cmd.String("output-format")), v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func statsCmd(ctx context.Context, cmd *cli.Command) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	o, err := openInput(ctx, cmd)
	if err != nil {
		return err
	}
	defer o.Close()
	summary, err := o.Statistics(kind)
	if err != nil {
		return err
	}
	return printValue(cmd, summary)
}

func expandCmd(ctx context.Context, cmd *cli.Command) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	o, err := openInput(ctx, cmd)
	if err != nil {
		return err
	}
	defer o.Close()
	expanded, err := o.Expanded(kind)
	if err != nil {
		return err
	}
	return printValue(cmd, expanded)
}

func exportCmd(ctx context.Context, cmd *cli.Command) error {
	o, err := openInput(ctx, cmd)
	if err != nil {
		return err
	}
	defer o.Close()
	res, err := o.Render(cmd.String("format"))
	if err != nil {
		return err
	}
	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, res.Content, 0o644)
	}
	_, err = os.Stdout.Write(res.Content)
	return err
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Attribution collection: manual or external",
			Value: string(models.KindManual),
		},
		&cli.StringFlag{
			Name:  "output-format",
			Usage: "Output encoding: json or yaml",
			Value: string(parser.FormatJSON),
		},
	}
}

func main() {

	cmd := &cli.Command{
		Name:   "licaudit",
		Usage:  "License attribution review for scanned codebases, with REST, SSE and MCP access",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and input watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "stats",
				Usage:     "Print license, source and criticality statistics",
				ArgsUsage: "<input>",
				Flags:     reportFlags(),
				Action:    statsCmd,
			},
			{
				Name:      "expand",
				Usage:     "Print attributions with their resources expanded to files",
				ArgsUsage: "<input>",
				Flags:     reportFlags(),
				Action:    expandCmd,
			},
			{
				Name:      "export",
				Usage:     "Render an SPDX document or the review-state file",
				ArgsUsage: "<input>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "One of spdx-json, spdx-yaml, review",
						Value: workspace.ExportSPDXJSON,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write to this file instead of stdout",
					},
				},
				Action: exportCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
