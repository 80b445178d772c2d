package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
)

var selectorCmd = &cli.Command{
	Name:      "selector",
	Usage:     "print the getHash selector and eth_call data for an address",
	ArgsUsage: "[address]",
	Action: func(c *cli.Context) error {
		fmt.Fprintf(c.App.Writer, "signature: %s\nselector:  %s\n", oracle.GetHashSignature, hexutil.Encode(oracle.GetHashSelector()))

		if c.NArg() == 0 {
			return nil
		}
		addr, err := models.ParseAddress(c.Args().First())
		if err != nil {
			return err
		}
		data, err := oracle.EncodeGetHashCall(addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "address:   %s\ncalldata:  %s\n", addr, hexutil.Encode(data))
		return nil
	},
}
