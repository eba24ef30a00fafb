package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/fuma/internal"
	"github.com/starford/fuma/internal/apperr"
	pkgconfig "github.com/starford/fuma/pkg/config"
)

var version = "0.1.0"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func commonOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithAPIKey(cmd.String("api-key")),
		internal.WithVersion(version),
	}, nil
}

func pathArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one <%s> argument", name)
	}
	return cmd.Args().First(), nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd, "collection")
	if err != nil {
		return err
	}
	rc := cmd.String("rest-client")
	if err := validation.Validate(rc,
		validation.In(internal.RestClientPanda, internal.RestClientBruno, internal.RestClientYaak),
	); err != nil {
		return fmt.Errorf("--rest-client: %w", err)
	}
	opts, err := commonOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Build(ctx, internal.BuildRequest{
		Path:       path,
		RestClient: rc,
		Watch:      cmd.Bool("watch"),
		Out:        cmd.String("out"),
	}, opts...)
}

func ui(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd, "path")
	if err != nil {
		return err
	}
	opts, err := commonOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Serve(ctx, path, opts...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd, "path")
	if err != nil {
		return err
	}
	opts, err := commonOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, path, opts...)
}

func apiKeyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "api-key",
		Usage:    "Your Fuma Studio API key",
		Required: true,
		Sources:  cli.EnvVars("FUMA_API_KEY"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "fuma-content",
		Usage:   "Bundles your HTTP collections for use in Fuma Studio. Currently supports Panda, Bruno HTTP clients.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("FUMA_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Build collection for Fuma Studio",
				ArgsUsage: "<collection>",
				Action:    build,
				Flags: []cli.Flag{
					apiKeyFlag(),
					&cli.StringFlag{
						Name:    "rest-client",
						Aliases: []string{"rc"},
						Usage:   "Your rest client (panda, bruno, yaak)",
						Value:   internal.RestClientBruno,
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Rebuild when the collection changes",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the bundle to a file instead of stdout",
					},
				},
			},
			{
				Name:      "ui",
				Usage:     "Serve a live preview of MDX documents",
				ArgsUsage: "<path>",
				Action:    ui,
				Flags:     []cli.Flag{apiKeyFlag()},
			},
			{
				Name:      "mcp",
				Usage:     "Serve MCP tools on stdin/stdout",
				ArgsUsage: "<path>",
				Action:    serveMCP,
				Flags:     []cli.Flag{apiKeyFlag()},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Run(ctx, os.Args)
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled by user.")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if tip := apperr.Tip(err); tip != "" {
			fmt.Fprintln(os.Stderr, tip)
		}
		stop()
		os.Exit(1)
	}
}
