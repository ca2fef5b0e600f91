package main

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
	"github.com/allisson/fieldcrypt/internal/app"
	"github.com/allisson/fieldcrypt/internal/config"
	"github.com/allisson/fieldcrypt/internal/http"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Create the rotation_progress table used by PROGRESS_STORE=database",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer shutdownContainer(ctx, container)

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "rotate",
			Usage: "Re-encrypt mapped collections under the current key version",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "mappings",
					Aliases:  []string{"m"},
					Required: true,
					Usage:    "Path to a JSON file with the field mappings",
				},
				&cli.StringSliceFlag{
					Name:    "collection",
					Aliases: []string{"c"},
					Usage:   "Rotate only this collection (repeatable)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer shutdownContainer(ctx, container)

				cfg := container.Config()
				logger := container.Logger()
				logger.Info("starting rotation", slog.String("version", version))
				gin.SetMode(cfg.GetGinMode())

				mappings, err := commands.LoadFieldMappings(cmd.String("mappings"), cmd.StringSlice("collection"))
				if err != nil {
					return err
				}

				useCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				var metricsServer *http.MetricsServer
				if cfg.MetricsEnabled {
					if metricsServer, err = container.MetricsServer(); err != nil {
						return err
					}
				}

				return commands.RunRotate(
					ctx,
					useCase,
					metricsServer,
					logger,
					commands.DefaultIO().Writer,
					mappings,
					cmd.String("format"),
				)
			},
		},
	}
}
