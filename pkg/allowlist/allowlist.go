// Package allowlist builds merkle trees over account addresses and answers
// membership and proof queries the way an allow-list mint contract checks them.
package allowlist

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"github.com/nftkit/allowlist-go/pkg/util"
)

// cacheKeyVersion is mixed into every cache key so a change in key layout
// never collides with keys written by an older build.
const cacheKeyVersion = "allowlist/v1"

// AllowList is an immutable merkle tree over 20-byte account addresses.
// Leaves are H(address) over the raw 20 bytes, matching
// keccak256(abi.encodePacked(account)) on chain with the default hash.
type AllowList struct {
	tree    *merkle.Tree
	members []common.Address
	index   map[common.Address]int
}

// New builds the tree over addresses. Duplicate addresses are rejected.
func New(addresses []common.Address, opts ...merkle.Option) (*AllowList, error) {
	if len(addresses) == 0 {
		return nil, merkle.ErrEmptyInput
	}

	index := make(map[common.Address]int, len(addresses))
	raw := make([][]byte, len(addresses))
	for i, addr := range addresses {
		if _, ok := index[addr]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, addr.Hex())
		}
		index[addr] = i
		raw[i] = addr.Bytes()
	}

	tree, err := merkle.Build(raw, opts...)
	if err != nil {
		return nil, err
	}

	return &AllowList{
		tree:    tree,
		members: slices.Clone(addresses),
		index:   index,
	}, nil
}

// NewFromStrings parses hex addresses and builds the list.
func NewFromStrings(raw []string, opts ...merkle.Option) (*AllowList, error) {
	addresses, err := ParseAddresses(raw)
	if err != nil {
		return nil, err
	}
	return New(addresses, opts...)
}

// Root returns the merkle root to configure on the contract.
func (a *AllowList) Root() common.Hash {
	return a.tree.Root()
}

// Leaf returns the leaf hash for addr whether or not it is a member.
func (a *AllowList) Leaf(addr common.Address) common.Hash {
	return a.tree.HashMember(addr.Bytes())
}

// Contains reports whether addr is a member.
func (a *AllowList) Contains(addr common.Address) bool {
	_, ok := a.index[addr]
	return ok
}

// Proof returns the sibling path for addr. Non-members get a *merkle.NotFoundError.
func (a *AllowList) Proof(addr common.Address) (merkle.Proof, error) {
	return a.tree.ProveFor(addr.Bytes())
}

// Verify checks proof for addr against this list's root.
func (a *AllowList) Verify(addr common.Address, proof merkle.Proof) bool {
	return a.tree.Verify(proof, a.Leaf(addr))
}

// Members returns a copy of the members in build order.
func (a *AllowList) Members() []common.Address {
	return slices.Clone(a.members)
}

// Len returns the member count.
func (a *AllowList) Len() int {
	return len(a.members)
}

// Depth returns the number of proof levels.
func (a *AllowList) Depth() int {
	return a.tree.Depth()
}

// Config returns the tree rules.
func (a *AllowList) Config() merkle.Config {
	return a.tree.Config()
}

// CacheKey identifies this list by its tree rules and member set.
func (a *AllowList) CacheKey() string {
	return CacheKeyFor(a.Config(), a.members)
}

// CacheKeyFor computes the cache key for a list that would be built from members under cfg.
// With LeafOrderInput the order of members is part of the key, since it changes the root.
// With LeafOrderSorted members are sorted first and any permutation maps to the same key.
func CacheKeyFor(cfg merkle.Config, members []common.Address) string {
	ordered := members
	if cfg.LeafOrder == merkle.LeafOrderSorted {
		ordered = slices.Clone(members)
		slices.SortFunc(ordered, func(x, y common.Address) int {
			return bytes.Compare(x[:], y[:])
		})
	}

	parts := make([][]byte, 0, len(ordered)+1)
	header := strings.Join([]string{
		cacheKeyVersion,
		cfg.HashFunction.String(),
		cfg.LeafOrder.String(),
		cfg.OddLayerPolicy.String(),
		merkle.SortRule,
	}, "|")
	parts = append(parts, []byte(header))
	for _, m := range ordered {
		parts = append(parts, m.Bytes())
	}

	return crypto.Keccak256Hash(parts...).Hex()
}

// Snapshot captures what is needed to rebuild and re-check this list later.
func (a *AllowList) Snapshot(name string) *persistence.TreeSnapshot {
	cfg := a.Config()
	members := util.Map(a.members, func(m common.Address, _ uint64) string {
		return m.Hex()
	})

	return &persistence.TreeSnapshot{
		Key:            a.CacheKey(),
		Root:           a.Root().Hex(),
		HashFunction:   cfg.HashFunction.String(),
		LeafOrder:      cfg.LeafOrder.String(),
		OddLayerPolicy: cfg.OddLayerPolicy.String(),
		SortRule:       merkle.SortRule,
		Members:        members,
		Name:           name,
		CreatedAt:      time.Now().Unix(),
	}
}

// FromSnapshot rebuilds a list and fails with *RootMismatchError unless the
// rebuilt root equals the recorded one.
func FromSnapshot(snapshot *persistence.TreeSnapshot) (*AllowList, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if snapshot.SortRule != "" && snapshot.SortRule != merkle.SortRule {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSortRule, snapshot.SortRule)
	}

	hashFn, err := merkle.ParseHashFunction(snapshot.HashFunction)
	if err != nil {
		return nil, err
	}
	leafOrder, err := merkle.ParseLeafOrder(snapshot.LeafOrder)
	if err != nil {
		return nil, err
	}
	oddLayer, err := merkle.ParseOddLayerPolicy(snapshot.OddLayerPolicy)
	if err != nil {
		return nil, err
	}

	expected, err := merkle.ParseHash(snapshot.Root)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s root: %w", snapshot.Key, err)
	}

	al, err := NewFromStrings(snapshot.Members,
		merkle.WithHashFunction(hashFn),
		merkle.WithLeafOrder(leafOrder),
		merkle.WithOddLayerPolicy(oddLayer),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snapshot.Key, err)
	}

	if al.Root() != expected {
		return nil, &RootMismatchError{Key: snapshot.Key, Expected: expected, Actual: al.Root()}
	}
	return al, nil
}
