package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *TreeSnapshot {
	return &TreeSnapshot{
		Key:            "0x01",
		Root:           "0x9a9b1b5c3f0b2b9d7c8e6f5a4d3c2b1a09f8e7d6c5b4a39281706f5e4d3c2b1a",
		HashFunction:   "keccak256",
		LeafOrder:      "input",
		OddLayerPolicy: "promote",
		SortRule:       "sorted-pairs",
		Members: []string{
			"0x42792048c8519e2B0e66B448543a53B88626D0Ea",
			"0x7f4B248427B845B70F7c1c81830463835D56e32f",
		},
		Name:      "test",
		CreatedAt: 1700000000,
	}
}

// TestMarshalUnmarshalTreeSnapshot_RoundTrip tests JSON marshaling/unmarshaling
func TestMarshalUnmarshalTreeSnapshot_RoundTrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := MarshalTreeSnapshot(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := UnmarshalTreeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

// TestMarshalTreeSnapshot_NilInput tests error handling for nil input
func TestMarshalTreeSnapshot_NilInput(t *testing.T) {
	_, err := MarshalTreeSnapshot(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil TreeSnapshot")
}

// TestUnmarshalTreeSnapshot_InvalidInput tests error handling for empty and invalid JSON
func TestUnmarshalTreeSnapshot_InvalidInput(t *testing.T) {
	_, err := UnmarshalTreeSnapshot(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	_, err = UnmarshalTreeSnapshot([]byte(`{"members": "not a list"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestTreeSnapshot_Validate(t *testing.T) {
	require.NoError(t, sampleSnapshot().Validate())

	var nilSnapshot *TreeSnapshot
	require.Error(t, nilSnapshot.Validate())

	noKey := sampleSnapshot()
	noKey.Key = ""
	require.Error(t, noKey.Validate())

	badRoot := sampleSnapshot()
	badRoot.Root = "0x1234"
	require.Error(t, badRoot.Validate())

	noMembers := sampleSnapshot()
	noMembers.Members = nil
	require.Error(t, noMembers.Validate())
}

func TestTreeSnapshot_Copy(t *testing.T) {
	original := sampleSnapshot()
	cp := original.Copy()
	require.Equal(t, original, cp)

	cp.Members[0] = "mutated"
	assert.NotEqual(t, "mutated", original.Members[0])
}
