package merkle

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// HashFunction names the 256-bit hash used for leaves and nodes.
// It must match whatever verifier consumes the proofs.
type HashFunction string

const (
	HashKeccak256 HashFunction = "keccak256"
	HashSHA3_256  HashFunction = "sha3-256"
	HashSHA256    HashFunction = "sha256"
)

func (h HashFunction) String() string {
	return string(h)
}

// Sum hashes the concatenation of data.
func (h HashFunction) Sum(data ...[]byte) common.Hash {
	switch h {
	case HashSHA3_256:
		hasher := sha3.New256()
		for _, d := range data {
			hasher.Write(d)
		}
		return common.BytesToHash(hasher.Sum(nil))
	case HashSHA256:
		hasher := sha256.New()
		for _, d := range data {
			hasher.Write(d)
		}
		return common.BytesToHash(hasher.Sum(nil))
	default:
		return crypto.Keccak256Hash(data...)
	}
}

// LeafOrder controls whether leaves keep the input order or are sorted before building.
type LeafOrder string

const (
	// LeafOrderInput keeps the caller's order. The root then depends on member order.
	LeafOrderInput LeafOrder = "input"
	// LeafOrderSorted sorts leaf hashes ascending. The root depends only on the member multiset.
	LeafOrderSorted LeafOrder = "sorted"
)

func (o LeafOrder) String() string {
	return string(o)
}

// OddLayerPolicy controls what happens to the last digest of a layer with an odd count.
type OddLayerPolicy string

const (
	// OddLayerPromote carries the lone digest into the next layer unchanged.
	// The promoted node gets no sibling in proofs for that level.
	OddLayerPromote OddLayerPolicy = "promote"
	// OddLayerDuplicate pairs the lone digest with itself.
	OddLayerDuplicate OddLayerPolicy = "duplicate"
)

func (p OddLayerPolicy) String() string {
	return string(p)
}

// Config is the full set of rules a tree was built with. Two trees with equal
// Config and equal members have equal roots.
type Config struct {
	HashFunction   HashFunction   `json:"hashFunction"`
	LeafOrder      LeafOrder      `json:"leafOrder"`
	OddLayerPolicy OddLayerPolicy `json:"oddLayerPolicy"`
}

// SortRule is the pair ordering applied at every node. It is fixed, but it is
// part of the tree's identity and is recorded alongside the other rules.
const SortRule = "sorted-pairs"

// Option configures tree construction.
type Option func(*treeConfig)

type treeConfig struct {
	hashFunction HashFunction
	leafOrder    LeafOrder
	oddLayer     OddLayerPolicy
}

// defaultTreeConfig returns the merkletreejs { sortPairs: true } compatible rules.
func defaultTreeConfig() treeConfig {
	return treeConfig{
		hashFunction: HashKeccak256,
		leafOrder:    LeafOrderInput,
		oddLayer:     OddLayerPromote,
	}
}

// WithHashFunction sets the leaf and node hash. Default is keccak256.
func WithHashFunction(h HashFunction) Option {
	return func(c *treeConfig) {
		c.hashFunction = h
	}
}

// WithLeafOrder sets the leaf ordering. Default is LeafOrderInput.
func WithLeafOrder(o LeafOrder) Option {
	return func(c *treeConfig) {
		c.leafOrder = o
	}
}

// WithOddLayerPolicy sets the odd-layer policy. Default is OddLayerPromote.
func WithOddLayerPolicy(p OddLayerPolicy) Option {
	return func(c *treeConfig) {
		c.oddLayer = p
	}
}

// WithConfig applies every rule from cfg, leaving defaults for empty fields.
func WithConfig(cfg Config) Option {
	return func(c *treeConfig) {
		if cfg.HashFunction != "" {
			c.hashFunction = cfg.HashFunction
		}
		if cfg.LeafOrder != "" {
			c.leafOrder = cfg.LeafOrder
		}
		if cfg.OddLayerPolicy != "" {
			c.oddLayer = cfg.OddLayerPolicy
		}
	}
}

// ResolveConfig applies opts over the defaults and returns the effective rules.
func ResolveConfig(opts ...Option) (Config, error) {
	cfg := defaultTreeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg.export(), nil
}

func (c treeConfig) validate() error {
	switch c.hashFunction {
	case HashKeccak256, HashSHA3_256, HashSHA256:
	default:
		return fmt.Errorf("%w: hash function %q", ErrUnknownOption, c.hashFunction)
	}
	switch c.leafOrder {
	case LeafOrderInput, LeafOrderSorted:
	default:
		return fmt.Errorf("%w: leaf order %q", ErrUnknownOption, c.leafOrder)
	}
	switch c.oddLayer {
	case OddLayerPromote, OddLayerDuplicate:
	default:
		return fmt.Errorf("%w: odd layer policy %q", ErrUnknownOption, c.oddLayer)
	}
	return nil
}

func (c treeConfig) export() Config {
	return Config{
		HashFunction:   c.hashFunction,
		LeafOrder:      c.leafOrder,
		OddLayerPolicy: c.oddLayer,
	}
}

// ParseHashFunction maps a config string onto a HashFunction.
func ParseHashFunction(s string) (HashFunction, error) {
	switch h := HashFunction(s); h {
	case HashKeccak256, HashSHA3_256, HashSHA256:
		return h, nil
	case "":
		return HashKeccak256, nil
	}
	return "", fmt.Errorf("%w: hash function %q", ErrUnknownOption, s)
}

// ParseLeafOrder maps a config string onto a LeafOrder.
func ParseLeafOrder(s string) (LeafOrder, error) {
	switch o := LeafOrder(s); o {
	case LeafOrderInput, LeafOrderSorted:
		return o, nil
	case "":
		return LeafOrderInput, nil
	}
	return "", fmt.Errorf("%w: leaf order %q", ErrUnknownOption, s)
}

// ParseOddLayerPolicy maps a config string onto an OddLayerPolicy.
func ParseOddLayerPolicy(s string) (OddLayerPolicy, error) {
	switch p := OddLayerPolicy(s); p {
	case OddLayerPromote, OddLayerDuplicate:
		return p, nil
	case "":
		return OddLayerPromote, nil
	}
	return "", fmt.Errorf("%w: odd layer policy %q", ErrUnknownOption, s)
}
