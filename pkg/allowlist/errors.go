package allowlist

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidMembers wraps the aggregated field errors from ParseAddresses.
	ErrInvalidMembers = errors.New("allowlist: invalid member list")

	// ErrDuplicateMember is returned by New when an address appears twice.
	ErrDuplicateMember = errors.New("allowlist: duplicate member")

	// ErrRootMismatch indicates a snapshot rebuilt to a different root than it recorded.
	ErrRootMismatch = errors.New("allowlist: rebuilt root does not match snapshot")

	// ErrUnsupportedSortRule indicates a snapshot recorded a pair ordering this build does not implement.
	ErrUnsupportedSortRule = errors.New("allowlist: unsupported sort rule")
)

// RootMismatchError carries both roots when a snapshot fails its rebuild check.
type RootMismatchError struct {
	Key      string
	Expected common.Hash
	Actual   common.Hash
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("allowlist: snapshot %s rebuilt to root %s, expected %s", e.Key, e.Actual.Hex(), e.Expected.Hex())
}

func (e *RootMismatchError) Is(target error) bool {
	return target == ErrRootMismatch
}
