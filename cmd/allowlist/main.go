package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "allowlist",
		Usage: "Merkle allow-list builder and mint helper",
		Description: `Builds a Merkle tree over an NFT allow-list and produces the proofs a mint contract checks.

This tool can:
- Compute the root to store in the contract and a proof for any member
- Verify proofs locally or against the contract's merkleRoot()
- Produce unsigned calldata for mint, mintAllowList and withdraw
- Serve proofs over HTTP for a mint frontend`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or JSON config file",
				EnvVars: []string{"ALLOWLIST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "members",
				Aliases: []string{"m"},
				Usage:   "Member file (JSON/YAML array or one address per line); overrides allowList from the config",
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"rpc"},
				Usage:   "Ethereum RPC endpoint URL",
				EnvVars: []string{config.EnvAllowListRPCURL},
			},
			&cli.StringFlag{
				Name:    "contract",
				Aliases: []string{"ca"},
				Usage:   "Allow-list mint contract address",
				EnvVars: []string{config.EnvAllowListContractAddress},
			},
			&cli.StringFlag{
				Name:  "hash",
				Usage: "Hash function: keccak256, sha3-256 or sha256",
			},
			&cli.StringFlag{
				Name:  "leaf-order",
				Usage: "Leaf order: input or sorted",
			},
			&cli.StringFlag{
				Name:  "odd-layer",
				Usage: "Odd layer policy: promote or duplicate",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAllowListDebug},
			},
		},
		Commands: []*cli.Command{
			rootCommand(),
			proofCommand(),
			verifyCommand(),
			encodeParamsCommand(),
			calldataCommand(),
			queryCommand(),
			serveCommand(),
			snapshotsCommand(),
		},
	}
}
