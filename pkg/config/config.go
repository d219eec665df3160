package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/nftkit/allowlist-go/pkg/merkle"
)

// Environment variable names that override values from the config file
const (
	EnvAllowListRPCURL          = "ALLOWLIST_RPC_URL"
	EnvAllowListContractAddress = "ALLOWLIST_CONTRACT_ADDRESS"
	EnvAllowListEOA             = "ALLOWLIST_EOA"
	EnvAllowListPort            = "ALLOWLIST_PORT"
	EnvAllowListDebug           = "ALLOWLIST_DEBUG"
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumGoerli  ChainId = 5
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumGoerli  ChainName = "goerli"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumGoerli:  ChainName_EthereumGoerli,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (goerli), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumGoerli, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
	PersistenceTypeBolt   PersistenceType = "bolt"
)

const (
	DefaultServerPort      = 8080
	DefaultServerRateLimit = 50.0
	DefaultServerBurst     = 100
)

type NetworkConfig struct {
	ChainId         ChainId `json:"chainId" yaml:"chainId"`
	RpcUrl          string  `json:"rpcURL" yaml:"rpcURL"`
	ContractAddress string  `json:"ca" yaml:"ca"`
}

type MerkleConfig struct {
	HashFunction   string `json:"hashFunction" yaml:"hashFunction"`
	LeafOrder      string `json:"leafOrder" yaml:"leafOrder"`
	OddLayerPolicy string `json:"oddLayerPolicy" yaml:"oddLayerPolicy"`
}

// TreeConfig converts the textual settings into merkle rules.
func (mc *MerkleConfig) TreeConfig() (merkle.Config, error) {
	h, err := merkle.ParseHashFunction(mc.HashFunction)
	if err != nil {
		return merkle.Config{}, err
	}
	o, err := merkle.ParseLeafOrder(mc.LeafOrder)
	if err != nil {
		return merkle.Config{}, err
	}
	p, err := merkle.ParseOddLayerPolicy(mc.OddLayerPolicy)
	if err != nil {
		return merkle.Config{}, err
	}
	return merkle.Config{HashFunction: h, LeafOrder: o, OddLayerPolicy: p}, nil
}

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`
	Redis    RedisConfig     `json:"redis" yaml:"redis"`
}

type ServerConfig struct {
	Port      int     `json:"port" yaml:"port"`
	// RateLimit is requests per second. Unset takes DefaultServerRateLimit, an explicit 0 disables limiting.
	RateLimit *float64 `json:"rateLimit" yaml:"rateLimit"`
	Burst     int      `json:"burst" yaml:"burst"`
}

// Limit returns the requests per second to allow, 0 meaning unlimited.
func (sc *ServerConfig) Limit() float64 {
	if sc == nil || sc.RateLimit == nil {
		return 0
	}
	return *sc.RateLimit
}

// AllowListConfig is the file based configuration shared by every allowlist command
type AllowListConfig struct {
	Name          string            `json:"name" yaml:"name"`
	Network       NetworkConfig     `json:"network" yaml:"network"`
	EOA           string            `json:"eoa" yaml:"eoa"`
	AllowListPath string            `json:"allowList" yaml:"allowList"`
	Merkle        MerkleConfig      `json:"merkle" yaml:"merkle"`
	Persistence   PersistenceConfig `json:"persistence" yaml:"persistence"`
	Server        ServerConfig      `json:"server" yaml:"server"`
	Debug         bool              `json:"debug" yaml:"debug"`
}

// NewDefaultConfig returns a config with every optional value filled in
func NewDefaultConfig() *AllowListConfig {
	cfg := &AllowListConfig{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads a YAML or JSON config file, fills defaults and applies environment overrides.
// Relative allow-list and data paths are resolved against the config file's directory.
// Unknown keys such as a private key left over from older scripts are ignored.
func LoadConfig(path string) (*AllowListConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &AllowListConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	if cfg.AllowListPath != "" && !filepath.IsAbs(cfg.AllowListPath) {
		cfg.AllowListPath = filepath.Join(baseDir, cfg.AllowListPath)
	}
	if cfg.Persistence.DataPath != "" && !filepath.IsAbs(cfg.Persistence.DataPath) {
		cfg.Persistence.DataPath = filepath.Join(baseDir, cfg.Persistence.DataPath)
	}

	cfg.setDefaults()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AllowListConfig) setDefaults() {
	if c.Persistence.Type == "" {
		c.Persistence.Type = PersistenceTypeMemory
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.RateLimit == nil {
		limit := DefaultServerRateLimit
		c.Server.RateLimit = &limit
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = DefaultServerBurst
	}
}

// ApplyEnv overrides config values with any ALLOWLIST_* environment variables that are set
func (c *AllowListConfig) ApplyEnv() error {
	if v := os.Getenv(EnvAllowListRPCURL); v != "" {
		c.Network.RpcUrl = v
	}
	if v := os.Getenv(EnvAllowListContractAddress); v != "" {
		c.Network.ContractAddress = v
	}
	if v := os.Getenv(EnvAllowListEOA); v != "" {
		c.EOA = v
	}
	if v := os.Getenv(EnvAllowListPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvAllowListPort, v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvAllowListDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvAllowListDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

// Validate checks the format of every value that is set. Values only some commands
// need, like the RPC URL, are checked by ValidateChainAccess.
func (c *AllowListConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Network.ChainId != 0 {
		if _, ok := ChainIdToName[c.Network.ChainId]; !ok {
			allErrors = append(allErrors, field.NotSupported(field.NewPath("network", "chainId"), c.Network.ChainId,
				[]string{GetSupportedChainIDsString()}))
		}
	}
	if c.Network.ContractAddress != "" && !common.IsHexAddress(c.Network.ContractAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("network", "ca"), c.Network.ContractAddress, "must be a hex address"))
	}
	if c.EOA != "" && !common.IsHexAddress(c.EOA) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("eoa"), c.EOA, "must be a hex address"))
	}
	if _, err := c.Merkle.TreeConfig(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("merkle"), c.Merkle, err.Error()))
	}

	persistencePath := field.NewPath("persistence")
	switch c.Persistence.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger, PersistenceTypeBolt:
		if c.Persistence.DataPath == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("dataPath"),
				fmt.Sprintf("dataPath is required for %s persistence", c.Persistence.Type)))
		}
	case PersistenceTypeRedis:
		if c.Persistence.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("redis", "address"), "redis address is required"))
		}
		if c.Persistence.Redis.DB < 0 || c.Persistence.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(persistencePath.Child("redis", "db"), c.Persistence.Redis.DB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(persistencePath.Child("type"), c.Persistence.Type,
			[]string{string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis), string(PersistenceTypeBolt)}))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("server", "port"), c.Server.Port, "must be between 1-65535"))
	}
	if c.Server.RateLimit != nil && *c.Server.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("server", "rateLimit"), *c.Server.RateLimit, "cannot be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ValidateChainAccess checks the values needed by commands that talk to the contract
func (c *AllowListConfig) ValidateChainAccess() error {
	var allErrors field.ErrorList
	if c.Network.RpcUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("network", "rpcURL"), "rpcURL is required"))
	}
	if c.Network.ContractAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("network", "ca"), "contract address is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
