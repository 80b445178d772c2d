package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"walletverify/pkg/secrets"
)

var secretCmd = &cli.Command{
	Name:  "secret",
	Usage: "generate operator secrets for the server environment",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "print a random value for ADMIN_STATIC_TOKEN or JWT_SIGNING_KEY",
			Action: func(c *cli.Context) error {
				v, err := secrets.Generate()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, v)
				return nil
			},
		},
		{
			Name:      "hash",
			Usage:     "bcrypt a password for ADMIN_PASSWORD_HASH (reads stdin when no argument is given)",
			ArgsUsage: "[password]",
			Action: func(c *cli.Context) error {
				password := c.Args().First()
				if password == "" {
					line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
					if err != nil && line == "" {
						return cli.Exit("password required", 2)
					}
					password = strings.TrimRight(line, "\r\n")
				}
				hash, err := secrets.Hash(password)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, hash)
				return nil
			},
		},
	},
}
