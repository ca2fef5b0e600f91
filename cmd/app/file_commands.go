package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
)

func getFileCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "encrypt-file",
			Usage: "Encrypt a file into a binary payload",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "Input file"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output payload file"},
				&cli.StringFlag{
					Name:     "record-id",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Record identifier bound into key derivation",
				},
				&cli.StringFlag{
					Name:  "metadata",
					Usage: "JSON object stored unencrypted in the payload header",
				},
				&cli.BoolFlag{
					Name:  "compress",
					Usage: "Gzip before encrypting (defaults to BINARY_COMPRESS)",
				},
				&cli.IntFlag{
					Name:  "max-size",
					Usage: "Plaintext size limit in bytes (defaults to BINARY_MAX_SIZE)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer shutdownContainer(ctx, container)

				binaryCipher, err := container.BinaryCipher()
				if err != nil {
					return err
				}

				opts := commands.EncryptFileOptions{
					RecordID: cmd.String("record-id"),
					Metadata: cmd.String("metadata"),
					MaxSize:  int(cmd.Int("max-size")),
				}
				if cmd.IsSet("compress") {
					compress := cmd.Bool("compress")
					opts.Compress = &compress
				}

				return commands.RunEncryptFile(
					binaryCipher,
					container.Logger(),
					cmd.String("in"),
					cmd.String("out"),
					opts,
				)
			},
		},
		{
			Name:  "decrypt-file",
			Usage: "Decrypt a binary payload into a file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "Input payload file"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output file"},
				&cli.StringFlag{
					Name:     "record-id",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Record identifier used at encryption time",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer shutdownContainer(ctx, container)

				binaryCipher, err := container.BinaryCipher()
				if err != nil {
					return err
				}

				return commands.RunDecryptFile(
					binaryCipher,
					container.Logger(),
					cmd.String("in"),
					cmd.String("out"),
					cmd.String("record-id"),
				)
			},
		},
		{
			Name:  "inspect-payload",
			Usage: "Print the header of a binary payload without decrypting it",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "Input payload file"},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunInspectPayload(commands.DefaultIO().Writer, cmd.String("in"), cmd.String("format"))
			},
		},
	}
}
