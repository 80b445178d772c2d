package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"walletverify/internal/admin/token"
	"walletverify/internal/platform/config"
)

type tokenOutput struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Subject   string `json:"subject"`
	ID        string `json:"jti"`
	ExpiresAt string `json:"expires_at"`
}

// tokenCmd signs an admin JWT offline. Without --signing-key it uses the dev
// key, which a production server rejects at startup.
var tokenCmd = &cli.Command{
	Name:  "token",
	Usage: "mint an admin token with the server's signing key",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "subject", Value: "walletctl", Usage: "token subject"},
		&cli.StringFlag{Name: "signing-key", EnvVars: []string{"JWT_SIGNING_KEY"}, Usage: "HS256 key (dev key when unset)"},
		&cli.StringFlag{Name: "issuer", Value: "walletverify", EnvVars: []string{"ADMIN_TOKEN_ISSUER"}},
		&cli.StringFlag{Name: "audience", Value: "walletverify-admin", EnvVars: []string{"ADMIN_TOKEN_AUDIENCE"}},
		&cli.DurationFlag{Name: "ttl", Value: 15 * time.Minute, Usage: "token lifetime"},
	},
	Action: func(c *cli.Context) error {
		key := c.String("signing-key")
		if key == "" {
			key = config.DevSigningKey
			fmt.Fprintln(c.App.ErrWriter, "warning: signing with the dev key; production servers reject it")
		}

		signed, claims, err := token.New(key, c.String("issuer"), c.String("audience"), c.Duration("ttl")).
			Issue(c.Context, c.String("subject"))
		if err != nil {
			return err
		}

		if !c.Bool("json") {
			fmt.Fprintln(c.App.Writer, signed)
			return nil
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(tokenOutput{
			Token:     signed,
			TokenType: "Bearer",
			Subject:   claims.Subject,
			ID:        claims.ID,
			ExpiresAt: claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		})
	},
}
