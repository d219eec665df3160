package allowlist

import (
	"errors"
	"slices"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddresses = []string{
	"0x42792048c8519e2B0e66B448543a53B88626D0Ea",
	"0x7f4B248427B845B70F7c1c81830463835D56e32f",
	"0xf2Ff98000Cc0700A640274db8d492f2DdF6929Fa",
	"0x1eC1C16957745cdC224FD852AAFdD133f3897078",
	"0xb719Fc59e5019DA292E6FaD7781c05B078585278",
	"0xaf35680c243ab73bf90d3704688c6038f127f3b0",
	"0xB8662e2A6019698B04FA4048c390c68EBeA2b2C1",
}

func mustParse(t *testing.T, raw []string) []common.Address {
	t.Helper()
	addresses, err := ParseAddresses(raw)
	require.NoError(t, err)
	return addresses
}

func TestAllowList_ProofsForEveryMember(t *testing.T) {
	addresses := mustParse(t, testAddresses)

	for _, policy := range []merkle.OddLayerPolicy{merkle.OddLayerPromote, merkle.OddLayerDuplicate} {
		t.Run(policy.String(), func(t *testing.T) {
			al, err := New(addresses, merkle.WithOddLayerPolicy(policy))
			require.NoError(t, err)
			assert.Equal(t, len(addresses), al.Len())
			assert.Equal(t, 3, al.Depth())

			for _, addr := range addresses {
				require.True(t, al.Contains(addr))

				proof, err := al.Proof(addr)
				require.NoError(t, err)
				assert.True(t, al.Verify(addr, proof))
				assert.True(t, merkle.VerifyWith(al.Config().HashFunction, proof, al.Leaf(addr), al.Root()))
			}
		})
	}
}

func TestAllowList_LeafMatchesSolidityPacking(t *testing.T) {
	addresses := mustParse(t, testAddresses)
	al, err := New(addresses)
	require.NoError(t, err)

	addr := addresses[3]
	assert.Equal(t, crypto.Keccak256Hash(addr.Bytes()), al.Leaf(addr))
}

func TestAllowList_NonMember(t *testing.T) {
	al, err := NewFromStrings(testAddresses)
	require.NoError(t, err)

	stranger := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.False(t, al.Contains(stranger))

	_, err = al.Proof(stranger)
	require.ErrorIs(t, err, merkle.ErrNotFound)

	var notFound *merkle.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, al.Leaf(stranger), notFound.Leaf)

	// A member's proof does not admit a stranger
	proof, err := al.Proof(common.HexToAddress(testAddresses[0]))
	require.NoError(t, err)
	assert.False(t, al.Verify(stranger, proof))
}

func TestAllowList_NewErrors(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, merkle.ErrEmptyInput)

	addr := common.HexToAddress(testAddresses[0])
	_, err = New([]common.Address{addr, addr})
	require.ErrorIs(t, err, ErrDuplicateMember)

	_, err = New([]common.Address{addr}, merkle.WithHashFunction("md4"))
	require.ErrorIs(t, err, merkle.ErrUnknownOption)

	_, err = NewFromStrings([]string{"0x1234"})
	require.ErrorIs(t, err, ErrInvalidMembers)
}

func TestAllowList_SingleMember(t *testing.T) {
	addr := common.HexToAddress(testAddresses[0])
	al, err := New([]common.Address{addr})
	require.NoError(t, err)

	assert.Equal(t, al.Leaf(addr), al.Root())
	proof, err := al.Proof(addr)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, al.Verify(addr, proof))
}

func TestAllowList_MembersIsCopy(t *testing.T) {
	addresses := mustParse(t, testAddresses)
	al, err := New(addresses)
	require.NoError(t, err)

	members := al.Members()
	require.Equal(t, addresses, members)
	members[0] = common.Address{}
	assert.Equal(t, addresses[0], al.Members()[0])

	// Mutating the caller's slice after New does not reach the list
	addresses[1] = common.Address{}
	assert.NotEqual(t, common.Address{}, al.Members()[1])
}

func TestCacheKey(t *testing.T) {
	addresses := mustParse(t, testAddresses)
	reversed := slices.Clone(addresses)
	slices.Reverse(reversed)

	t.Run("Input order keys on order", func(t *testing.T) {
		a, err := New(addresses)
		require.NoError(t, err)
		b, err := New(reversed)
		require.NoError(t, err)

		assert.NotEqual(t, a.CacheKey(), b.CacheKey())

		cfg, err := merkle.ResolveConfig()
		require.NoError(t, err)
		assert.Equal(t, a.CacheKey(), CacheKeyFor(cfg, addresses))
	})

	t.Run("Sorted order keys on set", func(t *testing.T) {
		a, err := New(addresses, merkle.WithLeafOrder(merkle.LeafOrderSorted))
		require.NoError(t, err)
		b, err := New(reversed, merkle.WithLeafOrder(merkle.LeafOrderSorted))
		require.NoError(t, err)

		assert.Equal(t, a.Root(), b.Root())
		assert.Equal(t, a.CacheKey(), b.CacheKey())
	})

	t.Run("Rules change the key", func(t *testing.T) {
		a, err := New(addresses)
		require.NoError(t, err)
		b, err := New(addresses, merkle.WithHashFunction(merkle.HashSHA256))
		require.NoError(t, err)
		c, err := New(addresses, merkle.WithOddLayerPolicy(merkle.OddLayerDuplicate))
		require.NoError(t, err)

		assert.NotEqual(t, a.CacheKey(), b.CacheKey())
		assert.NotEqual(t, a.CacheKey(), c.CacheKey())
		assert.NotEqual(t, b.CacheKey(), c.CacheKey())
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	al, err := NewFromStrings(testAddresses, merkle.WithHashFunction(merkle.HashSHA3_256), merkle.WithLeafOrder(merkle.LeafOrderSorted))
	require.NoError(t, err)

	snapshot := al.Snapshot("debox")
	require.NoError(t, snapshot.Validate())
	assert.Equal(t, "debox", snapshot.Name)
	assert.Equal(t, al.CacheKey(), snapshot.Key)
	assert.Equal(t, "sha3-256", snapshot.HashFunction)
	assert.Equal(t, merkle.SortRule, snapshot.SortRule)
	assert.NotZero(t, snapshot.CreatedAt)

	rebuilt, err := FromSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, al.Root(), rebuilt.Root())
	assert.Equal(t, al.Config(), rebuilt.Config())
	assert.Equal(t, al.Members(), rebuilt.Members())
}

func TestFromSnapshot_Errors(t *testing.T) {
	al, err := NewFromStrings(testAddresses)
	require.NoError(t, err)

	t.Run("Root mismatch", func(t *testing.T) {
		snapshot := al.Snapshot("")
		snapshot.Members = snapshot.Members[:len(snapshot.Members)-1]

		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrRootMismatch)

		var mismatch *RootMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, al.Root(), mismatch.Expected)
	})

	t.Run("Unknown hash", func(t *testing.T) {
		snapshot := al.Snapshot("")
		snapshot.HashFunction = "blake3"
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, merkle.ErrUnknownOption)
	})

	t.Run("Unknown sort rule", func(t *testing.T) {
		snapshot := al.Snapshot("")
		snapshot.SortRule = "positional"
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrUnsupportedSortRule)
	})

	t.Run("Bad member", func(t *testing.T) {
		snapshot := al.Snapshot("")
		snapshot.Members[0] = "not-an-address"
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrInvalidMembers)
	})

	t.Run("Invalid snapshot", func(t *testing.T) {
		_, err := FromSnapshot(nil)
		require.Error(t, err)
	})
}
