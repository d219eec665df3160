package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/contractCaller/caller"
	"github.com/nftkit/allowlist-go/pkg/util"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Read state from the allow-list contract",
		Subcommands: []*cli.Command{
			{
				Name:  "name",
				Usage: "Collection name",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						name, err := cc.GetName(c.Context)
						if err != nil {
							return err
						}
						fmt.Println(name)
						return nil
					})
				},
			},
			{
				Name:  "symbol",
				Usage: "Collection symbol",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						symbol, err := cc.GetSymbol(c.Context)
						if err != nil {
							return err
						}
						fmt.Println(symbol)
						return nil
					})
				},
			},
			{
				Name:      "balance",
				Usage:     "Tokens held by an address (defaults to the configured eoa)",
				ArgsUsage: "[address]",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						addr, err := ac.accountArg(c)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						balance, err := cc.GetBalanceOf(c.Context, addr)
						if err != nil {
							return err
						}
						fmt.Println(balance.String())
						return nil
					})
				},
			},
			{
				Name:      "eth-balance",
				Usage:     "Native balance of an address (defaults to the configured eoa)",
				ArgsUsage: "[address]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "unit", Value: "ether", Usage: "wei, kwei, mwei, gwei, szabo, finney or ether"},
				},
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						addr, err := ac.accountArg(c)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						wei, err := cc.GetAccountBalance(c.Context, addr)
						if err != nil {
							return err
						}
						amount, err := util.FromWei(wei, c.String("unit"))
						if err != nil {
							return err
						}
						fmt.Printf("%s %s\n", amount, c.String("unit"))
						return nil
					})
				},
			},
			{
				Name:  "merkle-root",
				Usage: "Root stored in the contract",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						root, err := cc.GetMerkleRoot(c.Context)
						if err != nil {
							return err
						}
						fmt.Println(root.Hex())
						return nil
					})
				},
			},
			{
				Name:  "check-root",
				Usage: "Compare the local root with the contract's merkleRoot()",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						al, err := ac.loadList(nil)
						if err != nil {
							return err
						}
						onChain, matches, err := checkRoot(c.Context, ac, al.Root())
						if err != nil {
							return err
						}
						if err := printJSON(map[string]any{
							"local":   al.Root().Hex(),
							"onChain": onChain.Hex(),
							"matches": matches,
						}); err != nil {
							return err
						}
						if !matches {
							return cli.Exit("contract root differs from the local allow-list", 1)
						}
						return nil
					})
				},
			},
			{
				Name:      "is-valid",
				Usage:     "Ask the contract whether an address's proof is valid (defaults to the configured eoa)",
				ArgsUsage: "[address]",
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						addr, err := ac.accountArg(c)
						if err != nil {
							return err
						}
						al, err := ac.loadList(nil)
						if err != nil {
							return err
						}
						proof, err := al.Proof(addr)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						valid, err := cc.IsValid(c.Context, proof, al.Leaf(addr))
						if err != nil {
							return err
						}
						fmt.Println(valid)
						return nil
					})
				},
			},
		},
	}
}

func withAppContext(c *cli.Context, fn func(ac *appContext) error) error {
	ac, err := newAppContext(c)
	if err != nil {
		return err
	}
	defer ac.Close()
	return fn(ac)
}

func callFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "from",
			Usage: "Sender address (defaults to the configured eoa)",
		},
		&cli.BoolFlag{
			Name:  "estimate",
			Usage: "Estimate gas for the call; a revert is reported as an error",
		},
	}
}

func mintFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.Int64Flag{
			Name:  "quantity",
			Usage: "Number of tokens to mint",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "value",
			Usage: "Total payment in --unit",
			Value: "0",
		},
		&cli.StringFlag{
			Name:  "unit",
			Usage: "Unit of --value",
			Value: "ether",
		},
	}, callFlags()...)
}

func calldataCommand() *cli.Command {
	return &cli.Command{
		Name:  "calldata",
		Usage: "Print unsigned transactions for an external signer",
		Subcommands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "Public mint",
				Flags: mintFlags(),
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						from, value, err := senderAndValue(c, ac)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						msg, err := cc.BuildMintCall(from, big.NewInt(c.Int64("quantity")), value)
						if err != nil {
							return err
						}
						return printCall(c, cc, msg)
					})
				},
			},
			{
				Name:  "mint-allowlist",
				Usage: "Allow-list mint with the sender's proof",
				Flags: mintFlags(),
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						from, value, err := senderAndValue(c, ac)
						if err != nil {
							return err
						}
						al, err := ac.loadList(nil)
						if err != nil {
							return err
						}
						proof, err := al.Proof(from)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						msg, err := cc.BuildMintAllowListCall(from, proof, big.NewInt(c.Int64("quantity")), value)
						if err != nil {
							return err
						}
						return printCall(c, cc, msg)
					})
				},
			},
			{
				Name:  "withdraw",
				Usage: "Owner withdrawal",
				Flags: callFlags(),
				Action: func(c *cli.Context) error {
					return withAppContext(c, func(ac *appContext) error {
						from, err := sender(c, ac)
						if err != nil {
							return err
						}
						cc, err := ac.contractCaller()
						if err != nil {
							return err
						}
						msg, err := cc.BuildWithdrawCall(from)
						if err != nil {
							return err
						}
						return printCall(c, cc, msg)
					})
				},
			},
		},
	}
}

func sender(c *cli.Context, ac *appContext) (common.Address, error) {
	raw := c.String("from")
	if raw == "" {
		raw = ac.cfg.EOA
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("sender %q is not an address: pass --from or set eoa", raw)
	}
	return common.HexToAddress(raw), nil
}

func senderAndValue(c *cli.Context, ac *appContext) (common.Address, *big.Int, error) {
	from, err := sender(c, ac)
	if err != nil {
		return common.Address{}, nil, err
	}
	value, err := util.ToWei(c.String("value"), c.String("unit"))
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("invalid --value: %w", err)
	}
	return from, value, nil
}

func printCall(c *cli.Context, cc *caller.ContractCaller, msg *ethereum.CallMsg) error {
	out := map[string]any{
		"from":  msg.From.Hex(),
		"to":    msg.To.Hex(),
		"value": msg.Value.String(),
		"data":  hexutil.Encode(msg.Data),
	}
	if c.Bool("estimate") {
		gas, err := cc.EstimateGas(c.Context, *msg)
		if err != nil {
			return err
		}
		out["gas"] = gas
	}
	return printJSON(out)
}
