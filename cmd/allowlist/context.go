package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nftkit/allowlist-go/pkg/allowlist"
	"github.com/nftkit/allowlist-go/pkg/config"
	"github.com/nftkit/allowlist-go/pkg/contractCaller/caller"
	"github.com/nftkit/allowlist-go/pkg/logger"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/nftkit/allowlist-go/pkg/persistence/factory"
)

// appContext bundles what every command needs: config, logger and the snapshot store.
type appContext struct {
	cfg    *config.AllowListConfig
	logger *zap.Logger
	store  persistence.ITreePersistence
}

func newAppContext(c *cli.Context) (*appContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := factory.NewFromConfig(&cfg.Persistence, l)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	return &appContext{cfg: cfg, logger: l, store: store}, nil
}

func (r *appContext) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Sugar().Warnw("Failed to close snapshot store", "error", err)
	}
	_ = r.logger.Sync()
}

// loadConfig reads the config file when one is given, then applies global flag overrides.
func loadConfig(c *cli.Context) (*config.AllowListConfig, error) {
	var cfg *config.AllowListConfig
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.NewDefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}

	if c.IsSet("members") {
		cfg.AllowListPath = c.String("members")
	}
	if c.IsSet("rpc-url") {
		cfg.Network.RpcUrl = c.String("rpc-url")
	}
	if c.IsSet("contract") {
		cfg.Network.ContractAddress = c.String("contract")
	}
	if c.IsSet("hash") {
		cfg.Merkle.HashFunction = c.String("hash")
	}
	if c.IsSet("leaf-order") {
		cfg.Merkle.LeafOrder = c.String("leaf-order")
	}
	if c.IsSet("odd-layer") {
		cfg.Merkle.OddLayerPolicy = c.String("odd-layer")
	}
	if c.Bool("verbose") {
		cfg.Debug = true
	}
	// only defined on serve
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cache returns a list cache backed by the snapshot store.
func (r *appContext) cache() (*allowlist.Cache, error) {
	return allowlist.NewCache(allowlist.DefaultCacheSize, r.store, r.logger)
}

// loadList reads the member file and returns its allow-list, reusing a stored snapshot when one matches.
func (r *appContext) loadList(cache *allowlist.Cache) (*allowlist.AllowList, error) {
	if r.cfg.AllowListPath == "" {
		return nil, fmt.Errorf("no member file: set allowList in the config or pass --members")
	}

	raw, err := allowlist.LoadMembers(r.cfg.AllowListPath)
	if err != nil {
		return nil, err
	}
	addresses, err := allowlist.ParseAddresses(raw)
	if err != nil {
		return nil, err
	}

	treeCfg, err := r.cfg.Merkle.TreeConfig()
	if err != nil {
		return nil, err
	}

	if cache == nil {
		if cache, err = r.cache(); err != nil {
			return nil, err
		}
	}
	return cache.GetOrBuild(r.cfg.Name, addresses, merkle.WithConfig(treeCfg))
}

// contractCaller connects to the configured RPC endpoint. No signer is involved.
func (r *appContext) contractCaller() (*caller.ContractCaller, error) {
	if err := r.cfg.ValidateChainAccess(); err != nil {
		return nil, err
	}

	ethClient := ethereum.NewEthereumClient(&ethereum.EthereumClientConfig{
		BaseUrl:   r.cfg.Network.RpcUrl,
		BlockType: ethereum.BlockType_Latest,
	}, r.logger)

	l1Client, err := ethClient.GetEthereumContractCaller()
	if err != nil {
		return nil, fmt.Errorf("failed to get Ethereum contract caller: %w", err)
	}

	return caller.NewContractCaller(l1Client, common.HexToAddress(r.cfg.Network.ContractAddress), r.logger)
}

// accountArg returns the address given as the first argument, falling back to the configured eoa.
func (r *appContext) accountArg(c *cli.Context) (common.Address, error) {
	raw := c.Args().First()
	if raw == "" {
		raw = r.cfg.EOA
	}
	if raw == "" {
		return common.Address{}, fmt.Errorf("no address given and no eoa configured")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
