package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve proofs over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP server port (overrides server.port)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	ac, err := newAppContext(c)
	if err != nil {
		return err
	}
	defer ac.Close()

	cache, err := ac.cache()
	if err != nil {
		return err
	}
	al, err := ac.loadList(cache)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithCache(cache),
		server.WithPersistence(ac.store),
	}
	if ac.cfg.ValidateChainAccess() == nil {
		cc, err := ac.contractCaller()
		if err != nil {
			return err
		}
		opts = append(opts, server.WithContractCaller(cc))
	} else {
		ac.logger.Sugar().Infow("No RPC URL or contract configured, on-chain root check disabled")
	}

	srv := server.NewServer(al, &ac.cfg.Server, ac.logger, opts...)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	ac.logger.Sugar().Infow("Allow-list server running",
		"root", al.Root().Hex(),
		"port", ac.cfg.Server.Port,
		"rate_limit", ac.cfg.Server.Limit(),
	)
	ac.logger.Sugar().Infow("Available endpoints",
		"health", "GET /health",
		"root", "GET /root",
		"members", "GET /members",
		"proof", "GET /proof/:address",
		"verify", "POST /verify")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	ac.logger.Sugar().Infow("Shutting down", "signal", sig.String())
	return srv.Stop()
}
