package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/merkle"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:   "root",
		Usage:  "Build the tree and print its root",
		Action: rootAction,
	}
}

func rootAction(c *cli.Context) error {
	ac, err := newAppContext(c)
	if err != nil {
		return err
	}
	defer ac.Close()

	al, err := ac.loadList(nil)
	if err != nil {
		return err
	}

	cfg := al.Config()
	return printJSON(map[string]any{
		"root":           al.Root().Hex(),
		"members":        al.Len(),
		"depth":          al.Depth(),
		"hashFunction":   cfg.HashFunction,
		"leafOrder":      cfg.LeafOrder,
		"oddLayerPolicy": cfg.OddLayerPolicy,
		"sortRule":       merkle.SortRule,
		"cacheKey":       al.CacheKey(),
	})
}

func proofCommand() *cli.Command {
	return &cli.Command{
		Name:      "proof",
		Usage:     "Print the proof for an address (defaults to the configured eoa)",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "on-chain",
				Usage: "Also check the proof with the contract's isValid",
			},
		},
		Action: proofAction,
	}
}

func proofAction(c *cli.Context) error {
	ac, err := newAppContext(c)
	if err != nil {
		return err
	}
	defer ac.Close()

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

	out := map[string]any{
		"address": addr.Hex(),
		"leaf":    al.Leaf(addr).Hex(),
		"root":    al.Root().Hex(),
		"proof":   proof.Hex(),
	}

	if c.Bool("on-chain") {
		cc, err := ac.contractCaller()
		if err != nil {
			return err
		}
		valid, err := cc.IsValid(c.Context, proof, al.Leaf(addr))
		if err != nil {
			return err
		}
		out["validOnChain"] = valid
	}

	return printJSON(out)
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a proof against a root without building the tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Member address; its leaf is hashed with --hash",
			},
			&cli.StringFlag{
				Name:  "leaf",
				Usage: "Leaf digest, used instead of --address",
			},
			&cli.StringFlag{
				Name:     "root",
				Usage:    "Expected root",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "proof",
				Usage: "Proof siblings, repeated or comma separated",
			},
		},
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	treeCfg, err := cfg.Merkle.TreeConfig()
	if err != nil {
		return err
	}

	var leaf common.Hash
	switch {
	case c.String("address") != "":
		raw := c.String("address")
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid address %q", raw)
		}
		leaf = treeCfg.HashFunction.Sum(common.HexToAddress(raw).Bytes())
	case c.String("leaf") != "":
		if leaf, err = merkle.ParseHash(c.String("leaf")); err != nil {
			return fmt.Errorf("invalid leaf: %w", err)
		}
	default:
		return fmt.Errorf("one of --address or --leaf is required")
	}

	root, err := merkle.ParseHash(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}

	proof, err := merkle.ParseHexProof(splitList(c.StringSlice("proof")))
	if err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}

	valid := merkle.VerifyWith(treeCfg.HashFunction, proof, leaf, root)
	fmt.Println(valid)
	if !valid {
		return cli.Exit("", 1)
	}
	return nil
}

// splitList accepts repeated flags, comma separated values and a JSON style ["0x..","0x.."] paste.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.Trim(strings.TrimSpace(part), `[]"' `)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// checkRoot compares the local root with merkleRoot() on the contract.
func checkRoot(ctx context.Context, ac *appContext, local common.Hash) (common.Hash, bool, error) {
	cc, err := ac.contractCaller()
	if err != nil {
		return common.Hash{}, false, err
	}
	onChain, err := cc.GetMerkleRoot(ctx)
	if err != nil {
		return common.Hash{}, false, err
	}
	return onChain, onChain == local, nil
}
