package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/hours/internal"
	pkgconfig "github.com/starford/hours/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	)
}

func writeSchema(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return internal.WriteSchema(ctx, os.Stdout)
	}
	out := cmd.Args().First()
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := internal.WriteSchema(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func importAutosave(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("usage: hours autosave <path>", 2)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	imported, err := internal.ImportAutosave(ctx, cmd.Args().First(),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return err
	}
	if imported {
		fmt.Fprintln(cmd.Root().Writer, "autosave imported")
	} else {
		fmt.Fprintln(cmd.Root().Writer, "autosave unchanged since last import")
	}
	return nil
}

func emptyDB(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.EmptyDB(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func main() {
	cmd := &cli.Command{
		Name:    "hours",
		Usage:   "Companion service for the catalog of items, skills, workstations and recipes",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: runMCP,
			},
			{
				Name:      "schema",
				Usage:     "Print the graph schema introspection",
				ArgsUsage: "[out]",
				Action:    writeSchema,
			},
			{
				Name:      "autosave",
				Usage:     "Import a game autosave into the database",
				ArgsUsage: "<path>",
				Action:    importAutosave,
			},
			{
				Name:   "empty-db",
				Usage:  "Forget all stored progress",
				Action: emptyDB,
			},
			itemsCommand(),
			skillsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
