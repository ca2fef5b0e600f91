package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
	"github.com/allisson/fieldcrypt/internal/app"
	"github.com/allisson/fieldcrypt/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key, optionally wrapped by a KMS",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "key-version",
					Aliases: []string{"v"},
					Value:   1,
					Usage:   "Version tag for the new key (1-255)",
				},
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer shutdownContainer(ctx, container)

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("key-version")),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:      "hash",
			Usage:     "Compute the searchable hash of a value",
			ArgsUsage: "<value>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "verify",
					Usage: "Compare against an existing hash and fail on mismatch",
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

				stringCipher, err := container.StringCipher()
				if err != nil {
					return err
				}

				return commands.RunHash(
					stringCipher,
					commands.DefaultIO().Writer,
					cmd.Args().First(),
					cmd.String("verify"),
					cmd.String("format"),
				)
			},
		},
	}
}
