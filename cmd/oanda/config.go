package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-oanda/internal/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: configSchemaAction,
			},
			{
				Name:   "show",
				Usage:  "Print the resolved configuration with the token redacted",
				Action: configShowAction,
			},
		},
	}
}

func configSchemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}

func configShowAction(_ context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	cfg := *rt.cfg
	cfg.Token = "********"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.Root().Writer, string(data))

	return nil
}
