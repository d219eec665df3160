package util

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

func FuzzEncodeStringRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("hello")
	f.Add("ipfs://Qmd1A7kcEJdfbFD7Fx1e7XdquQDAWahTJ4sbDemLvBhoTN/")
	f.Add("こんにちは") // unicode

	stringType, _ := abi.NewType("string", "", nil)
	args := abi.Arguments{{Type: stringType}}

	f.Fuzz(func(t *testing.T, s string) {
		// Keep memory bounded for fuzzing.
		if len(s) > 4096 {
			s = s[:4096]
		}

		encoded, err := EncodeString(s)
		require.NoError(t, err)

		out, err := args.Unpack(encoded)
		require.NoError(t, err)
		require.Len(t, out, 1)

		decoded, ok := out[0].(string)
		require.True(t, ok)
		require.Equal(t, s, decoded)
	})
}

func FuzzWeiRoundTrip(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(1))
	f.Add(int64(123456789123456789))
	f.Add(int64(-7))

	f.Fuzz(func(t *testing.T, n int64) {
		wei := big.NewInt(n)
		for _, unit := range []string{"wei", "gwei", "ether"} {
			s, err := FromWei(wei, unit)
			require.NoError(t, err)

			back, err := ToWei(s, unit)
			require.NoError(t, err)
			require.Equal(t, 0, wei.Cmp(back), "unit %s value %s", unit, s)
		}
	})
}
