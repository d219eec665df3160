package merkle

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Tree is an immutable binary merkle tree over allow-list members.
// Every parent is H(min(a,b) || max(a,b)), so proofs carry no position bits
// and verify the same way as OpenZeppelin's MerkleProof.
type Tree struct {
	root common.Hash

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][]common.Hash

	cfg treeConfig
}

// Root returns the merkle root hash.
func (mt *Tree) Root() common.Hash {
	return mt.root
}

// Leaves returns a copy of the leaf hashes in build order.
func (mt *Tree) Leaves() []common.Hash {
	return slices.Clone(mt.levels[0])
}

// Proof is the list of sibling hashes from leaf to root.
// proof[0] is the sibling of the leaf, proof[len-1] is the child of the root.
type Proof []common.Hash

// Hex returns the proof as 0x-prefixed hex strings, the form contracts and
// frontends expect for a bytes32[] argument.
func (p Proof) Hex() []string {
	out := make([]string, len(p))
	for i, h := range p {
		out[i] = h.Hex()
	}
	return out
}

// Bytes32 converts the proof into the shape go-ethereum's ABI packer expects for bytes32[].
func (p Proof) Bytes32() [][32]byte {
	out := make([][32]byte, len(p))
	for i, h := range p {
		out[i] = h
	}
	return out
}

// ParseHexProof decodes 0x-prefixed hex siblings. Each element must be exactly 32 bytes.
func ParseHexProof(elems []string) (Proof, error) {
	raw := make([][]byte, len(elems))
	for i, e := range elems {
		b, err := decodeHex(e)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		raw[i] = b
	}
	return ParseProof(raw)
}

// ParseProof converts raw byte slices into a Proof, rejecting any element that is not a 32-byte digest.
func ParseProof(raw [][]byte) (Proof, error) {
	proof := make(Proof, len(raw))
	for i, b := range raw {
		if len(b) != common.HashLength {
			return nil, &MismatchError{Index: i, Length: len(b)}
		}
		proof[i] = common.BytesToHash(b)
	}
	return proof, nil
}

// ParseHash decodes a single 0x-prefixed 32-byte hex digest.
func ParseHash(s string) (common.Hash, error) {
	b, err := decodeHex(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, &MismatchError{Index: -1, Length: len(b)}
	}
	return common.BytesToHash(b), nil
}
