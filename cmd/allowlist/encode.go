package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/util"
)

func encodeParamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode-params",
		Usage: "ABI-encode constructor or call arguments, e.g. for contract verification",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "types",
				Usage: "Solidity types, e.g. --types string,string,bytes32",
			},
			&cli.StringSliceFlag{
				Name:  "values",
				Usage: "Values in the same order as --types",
			},
			&cli.StringSliceFlag{
				Name:  "addresses",
				Usage: "Shorthand for --types address,... with these values",
			},
			&cli.StringFlag{
				Name:  "string",
				Usage: "Shorthand for --types string with this value",
			},
			&cli.BoolFlag{
				Name:  "no-prefix",
				Usage: "Omit the 0x prefix, the form block explorers expect",
			},
		},
		Action: encodeParamsAction,
	}
}

func encodeParamsAction(c *cli.Context) error {
	var (
		data []byte
		err  error
	)
	switch {
	case len(c.StringSlice("types")) > 0:
		data, err = util.EncodeArguments(c.StringSlice("types"), c.StringSlice("values"))
	case len(c.StringSlice("addresses")) > 0:
		raw := c.StringSlice("addresses")
		addresses := make([]common.Address, len(raw))
		for i, a := range raw {
			if !common.IsHexAddress(a) {
				return fmt.Errorf("invalid address %q", a)
			}
			addresses[i] = common.HexToAddress(a)
		}
		data, err = util.EncodeAddresses(addresses...)
	case c.IsSet("string"):
		data, err = util.EncodeString(c.String("string"))
	default:
		return fmt.Errorf("one of --types, --addresses or --string is required")
	}
	if err != nil {
		return err
	}

	out := hexutil.Encode(data)
	if c.Bool("no-prefix") {
		out = out[2:]
	}
	fmt.Println(out)
	return nil
}
