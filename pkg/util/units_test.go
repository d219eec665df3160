package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWei(t *testing.T) {
	wei, _ := new(big.Int).SetString("123456789123456789", 10)

	testCases := []struct {
		wei      *big.Int
		unit     string
		expected string
	}{
		{wei, "ether", "0.123456789123456789"},
		{wei, "gwei", "123456789.123456789"},
		{wei, "wei", "123456789123456789"},
		{big.NewInt(0), "ether", "0"},
		{new(big.Int).Mul(big.NewInt(3), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)), "ether", "3"},
		{big.NewInt(-1500000000), "gwei", "-1.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected+" "+tc.unit, func(t *testing.T) {
			out, err := FromWei(tc.wei, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}

	_, err := FromWei(nil, "ether")
	require.Error(t, err)
	_, err = FromWei(big.NewInt(1), "btc")
	require.Error(t, err)
}

func TestToWei(t *testing.T) {
	wei, err := ToWei("0.123456789123456789", "ether")
	require.NoError(t, err)
	assert.Equal(t, "123456789123456789", wei.String())

	wei, err = ToWei("0.1", "Ether")
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", wei.String())

	wei, err = ToWei(".5", "gwei")
	require.NoError(t, err)
	assert.Equal(t, "500000000", wei.String())

	wei, err = ToWei("-2", "finney")
	require.NoError(t, err)
	assert.Equal(t, "-2000000000000000", wei.String())

	for _, bad := range []string{"", ".", "1.2.3", "abc", "1e18", "0.0000000000000000001"} {
		_, err := ToWei(bad, "ether")
		assert.Error(t, err, bad)
	}
}

func TestWeiRoundTrip(t *testing.T) {
	for _, amount := range []string{"0", "1", "0.000000000000000001", "1234.5678", "-0.25"} {
		wei, err := ToWei(amount, "ether")
		require.NoError(t, err)

		back, err := FromWei(wei, "ether")
		require.NoError(t, err)
		assert.Equal(t, amount, back)
	}
}
