package merkle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Sentinel errors for tree construction, proof generation and proof parsing.
var (
	// ErrEmptyInput indicates a tree was requested over zero members.
	ErrEmptyInput = errors.New("merkle: cannot build tree from empty member list")

	// ErrNotFound indicates the requested leaf is not part of the tree.
	ErrNotFound = errors.New("merkle: leaf not found in tree")

	// ErrMismatch indicates a digest with the wrong byte length.
	ErrMismatch = errors.New("merkle: malformed digest length")

	// ErrUnknownOption indicates an unrecognised hash function, leaf order or odd-layer policy name.
	ErrUnknownOption = errors.New("merkle: unknown option value")
)

// NotFoundError reports the leaf that was looked up and is absent from the leaf layer.
type NotFoundError struct {
	Leaf common.Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("merkle: leaf %s not found in tree", e.Leaf.Hex())
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MismatchError reports a proof element (or a standalone digest when Index is -1)
// whose length is not 32 bytes.
type MismatchError struct {
	Index  int
	Length int
}

func (e *MismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("merkle: digest must be %d bytes, got %d", common.HashLength, e.Length)
	}
	return fmt.Sprintf("merkle: proof element %d must be %d bytes, got %d", e.Index, common.HashLength, e.Length)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
