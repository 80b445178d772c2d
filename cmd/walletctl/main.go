// Command walletctl is the operator CLI for walletverify: it drives the HTTP
// API, mints admin tokens offline and tails the wallet event stream.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "walletctl",
		Usage:   "operate a walletverify server",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "walletverify base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"WALLETCTL_SERVER"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "admin JWT sent as a bearer token",
				EnvVars: []string{"WALLETCTL_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "admin-token",
				Usage:   "static admin token sent as X-Admin-Token",
				EnvVars: []string{"ADMIN_STATIC_TOKEN"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP request timeout",
				Value: defaultHTTPTimeout,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print raw JSON responses",
			},
		},
		Commands: commands(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		registerCmd,
		getCmd,
		loginCmd,
		verifyCmd,
		listCmd,
		statsCmd,
		tokenCmd,
		selectorCmd,
		eventsCmd,
		secretCmd,
	}
}
