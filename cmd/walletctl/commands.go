package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"walletverify/internal/admin"
	wallethandler "walletverify/internal/wallet/handler"
)

var registerCmd = &cli.Command{
	Name:      "register",
	Usage:     "register or replace a wallet claim",
	ArgsUsage: "<address> <fingerprint>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.Exit("usage: walletctl register <address> <fingerprint>", 2)
		}
		var resp wallethandler.RegisterResponse
		raw, status, err := newClient(c).do(c.Context, http.MethodPost, "/api/wallet/register",
			&wallethandler.RegisterRequest{Address: c.Args().Get(0), Fingerprint: c.Args().Get(1)}, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		if status == http.StatusCreated {
			fmt.Fprintln(c.App.Writer, color.GreenString(resp.Message))
		} else {
			fmt.Fprintln(c.App.Writer, color.YellowString(resp.Message))
		}
		if resp.Wallet != nil {
			printWallet(c.App.Writer, resp.Wallet)
		}
		return nil
	},
}

var getCmd = &cli.Command{
	Name:      "get",
	Usage:     "show a wallet claim",
	ArgsUsage: "<address>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit("usage: walletctl get <address>", 2)
		}
		var resp wallethandler.WalletResponse
		raw, _, err := newClient(c).do(c.Context, http.MethodGet, "/api/wallet/"+url.PathEscape(c.Args().First()), nil, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		printWallet(c.App.Writer, &resp)
		return nil
	},
}

var loginCmd = &cli.Command{
	Name:  "login",
	Usage: "exchange the admin credential for a token",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "username", Required: true, EnvVars: []string{"ADMIN_USERNAME"}},
		&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
	},
	Action: func(c *cli.Context) error {
		var resp admin.LoginResponse
		raw, _, err := newClient(c).do(c.Context, http.MethodPost, "/api/admin/login",
			&admin.LoginRequest{Username: c.String("username"), Password: c.String("password")}, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		fmt.Fprintln(c.App.Writer, resp.Token)
		fmt.Fprintf(c.App.ErrWriter, "expires %s; export WALLETCTL_TOKEN to reuse it\n", resp.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "reconcile a wallet against the ledger (admin)",
	ArgsUsage: "<address>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit("usage: walletctl verify <address>", 2)
		}
		var resp wallethandler.VerifyResponse
		raw, _, err := newClient(c).do(c.Context, http.MethodPost, "/api/admin/verify",
			&wallethandler.VerifyRequest{Address: c.Args().First()}, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		w := c.App.Writer
		if !resp.Matched {
			fmt.Fprintln(w, color.RedString("MISMATCH"), resp.Message)
			fmt.Fprintf(w, "  local:  %s\n  ledger: %s\n", resp.LocalFingerprint, resp.RemoteFingerprint)
			return cli.Exit("", 1)
		}
		fmt.Fprintln(w, color.GreenString("VERIFIED"), resp.Message)
		if resp.Wallet != nil {
			printWallet(w, resp.Wallet)
		}
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list wallet claims, newest first (admin)",
	Action: func(c *cli.Context) error {
		var resp wallethandler.WalletListResponse
		raw, _, err := newClient(c).do(c.Context, http.MethodGet, "/api/admin/wallets", nil, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ADDRESS\tFORMAT\tVERIFIED\tUPDATED\tFINGERPRINT")
		for _, wallet := range resp.Wallets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				wallet.Address,
				wallet.FingerprintFormat,
				verifiedLabel(wallet.Verified),
				wallet.UpdatedAt.Format(time.RFC3339),
				wallet.Fingerprint,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d wallet(s)\n", resp.Count)
		return nil
	},
}

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "show wallet totals (admin)",
	Action: func(c *cli.Context) error {
		var resp wallethandler.StatsResponse
		raw, _, err := newClient(c).do(c.Context, http.MethodGet, "/api/admin/stats", nil, &resp)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printRaw(c, raw)
		}
		fmt.Fprintf(c.App.Writer, "total:    %d\nverified: %s\nas of:    %s\n",
			resp.TotalWallets,
			color.GreenString("%d", resp.VerifiedWallets),
			resp.Timestamp.Format(time.RFC3339),
		)
		return nil
	},
}

func printWallet(w io.Writer, wallet *wallethandler.WalletResponse) {
	fmt.Fprintf(w, "address:     %s\n", wallet.Address)
	fmt.Fprintf(w, "fingerprint: %s (%s)\n", wallet.Fingerprint, wallet.FingerprintFormat)
	fmt.Fprintf(w, "verified:    %s\n", verifiedLabel(wallet.Verified))
	fmt.Fprintf(w, "created:     %s\n", wallet.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "updated:     %s\n", wallet.UpdatedAt.Format(time.RFC3339))
	if wallet.VerifiedAt != nil {
		fmt.Fprintf(w, "verified at: %s\n", wallet.VerifiedAt.Format(time.RFC3339))
	}
}

func verifiedLabel(verified bool) string {
	if verified {
		return color.GreenString("yes")
	}
	return color.YellowString("no")
}

func printRaw(c *cli.Context, raw []byte) error {
	_, err := c.App.Writer.Write(append(raw, '\n'))
	return err
}
