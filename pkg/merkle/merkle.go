package merkle

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Build hashes every member into a leaf and builds the tree over those leaves.
//
// Members are raw identifier bytes; for accounts this is the 20-byte address so that
// leaves equal Solidity's keccak256(abi.encodePacked(account)).
// Duplicate members produce duplicate leaves and callers are expected to pre-validate.
func Build(members [][]byte, opts ...Option) (*Tree, error) {
	if len(members) == 0 {
		return nil, ErrEmptyInput
	}

	cfg := defaultTreeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	leaves := make([]common.Hash, len(members))
	for i, m := range members {
		leaves[i] = cfg.hashFunction.Sum(m)
	}

	return buildTree(leaves, cfg)
}

// BuildFromLeaves builds the tree over already hashed leaves.
// The input slice is copied and never modified.
func BuildFromLeaves(leaves []common.Hash, opts ...Option) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyInput
	}

	cfg := defaultTreeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return buildTree(slices.Clone(leaves), cfg)
}

func buildTree(leaves []common.Hash, cfg treeConfig) (*Tree, error) {
	if cfg.leafOrder == LeafOrderSorted {
		SortHashes(leaves)
	}

	// Build tree levels bottom-up
	levels := make([][]common.Hash, 0)
	levels = append(levels, leaves)

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([]common.Hash, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 < len(currentLevel) {
				nextLevel = append(nextLevel, HashPair(cfg.hashFunction, currentLevel[i], currentLevel[i+1]))
				continue
			}

			// Lone last node on an odd level
			if cfg.oddLayer == OddLayerDuplicate {
				nextLevel = append(nextLevel, HashPair(cfg.hashFunction, currentLevel[i], currentLevel[i]))
			} else {
				nextLevel = append(nextLevel, currentLevel[i])
			}
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	if len(currentLevel) != 1 {
		return nil, fmt.Errorf("merkle tree construction failed: final level has %d nodes instead of 1", len(currentLevel))
	}

	return &Tree{
		root:   currentLevel[0],
		levels: levels,
		cfg:    cfg,
	}, nil
}

// ProveFor hashes member with the tree's hash function and returns its inclusion proof.
func (mt *Tree) ProveFor(member []byte) (Proof, error) {
	return mt.ProveLeaf(mt.HashMember(member))
}

// ProveLeaf returns the inclusion proof for the first leaf equal to leaf.
func (mt *Tree) ProveLeaf(leaf common.Hash) (Proof, error) {
	index := mt.IndexOf(leaf)
	if index < 0 {
		return nil, &NotFoundError{Leaf: leaf}
	}
	return mt.proofAt(index), nil
}

// IndexOf returns the position of the first matching leaf, or -1.
func (mt *Tree) IndexOf(leaf common.Hash) int {
	return slices.Index(mt.levels[0], leaf)
}

func (mt *Tree) proofAt(index int) Proof {
	proof := make(Proof, 0, len(mt.levels)-1)

	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index + 1
		if index%2 == 1 {
			siblingIndex = index - 1
		}

		switch {
		case siblingIndex < len(currentLevel):
			proof = append(proof, currentLevel[siblingIndex])
		case mt.cfg.oddLayer == OddLayerDuplicate:
			proof = append(proof, currentLevel[index])
		}
		// promoted nodes have no sibling on this level

		index = index / 2
	}

	return proof
}

// HashMember returns the leaf hash for a raw member.
func (mt *Tree) HashMember(member []byte) common.Hash {
	return mt.cfg.hashFunction.Sum(member)
}

// Verify checks a proof against this tree's root using the tree's hash function.
func (mt *Tree) Verify(proof Proof, leaf common.Hash) bool {
	return VerifyWith(mt.cfg.hashFunction, proof, leaf, mt.root)
}

// Depth returns the number of levels above the leaves.
func (mt *Tree) Depth() int {
	return len(mt.levels) - 1
}

// Config returns the rules the tree was built with.
func (mt *Tree) Config() Config {
	return mt.cfg.export()
}

// Verify recomputes the root from leaf and proof with keccak256 and compares it to root.
// It needs no Tree, so the same check can run in a contract or a separate verifier.
func Verify(proof Proof, leaf, root common.Hash) bool {
	return VerifyWith(HashKeccak256, proof, leaf, root)
}

// VerifyWith is Verify with an explicit hash function.
func VerifyWith(h HashFunction, proof Proof, leaf, root common.Hash) bool {
	current := leaf
	for _, sibling := range proof {
		current = HashPair(h, current, sibling)
	}
	return current == root
}

// VerifyBytes verifies raw byte slices. Any element, leaf or root that is not
// exactly 32 bytes makes it return false before any hashing happens.
func VerifyBytes(h HashFunction, proof [][]byte, leaf, root []byte) bool {
	if len(leaf) != common.HashLength || len(root) != common.HashLength {
		return false
	}
	parsed, err := ParseProof(proof)
	if err != nil {
		return false
	}
	return VerifyWith(h, parsed, common.BytesToHash(leaf), common.BytesToHash(root))
}

// HashPair computes H(min(a,b) || max(a,b)), ordering the two digests as big-endian integers.
func HashPair(h HashFunction, a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return h.Sum(a[:], b[:])
}

// SortHashes sorts digests ascending by byte value, in place.
func SortHashes(hashes []common.Hash) {
	slices.SortFunc(hashes, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
}
