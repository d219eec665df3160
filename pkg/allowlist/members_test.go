package allowlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMemberFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMembers(t *testing.T) {
	expected := []string{
		"0x42792048c8519e2B0e66B448543a53B88626D0Ea",
		"0x7f4B248427B845B70F7c1c81830463835D56e32f",
	}

	testCases := []struct {
		name     string
		file     string
		content  string
		expected []string
	}{
		{
			name:     "JSON array",
			file:     "whitelist.json",
			content:  `["0x42792048c8519e2B0e66B448543a53B88626D0Ea", "0x7f4B248427B845B70F7c1c81830463835D56e32f"]`,
			expected: expected,
		},
		{
			name:     "YAML sequence",
			file:     "whitelist.yaml",
			content:  "- 0x42792048c8519e2B0e66B448543a53B88626D0Ea\n- 0x7f4B248427B845B70F7c1c81830463835D56e32f\n",
			expected: expected,
		},
		{
			name:     "Text lines with comments",
			file:     "whitelist.txt",
			content:  "# phase one\n0x42792048c8519e2B0e66B448543a53B88626D0Ea\n\n  0x7f4B248427B845B70F7c1c81830463835D56e32f  \n",
			expected: expected,
		},
		{
			name:     "JSON without extension",
			file:     "whitelist",
			content:  "\n[\"0x42792048c8519e2B0e66B448543a53B88626D0Ea\"]",
			expected: expected[:1],
		},
		{
			name:     "Empty JSON file",
			file:     "empty.json",
			content:  "",
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			members, err := LoadMembers(writeMemberFile(t, tc.file, tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, members)
		})
	}
}

func TestLoadMembers_Errors(t *testing.T) {
	_, err := LoadMembers(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = LoadMembers(writeMemberFile(t, "bad.json", `{"not": "a list"}`))
	require.Error(t, err)
}

func TestParseAddresses(t *testing.T) {
	t.Run("Valid keeps order and checksums", func(t *testing.T) {
		addresses, err := ParseAddresses([]string{
			"0xaf35680c243ab73bf90d3704688c6038f127f3b0",
			" 0x42792048c8519e2B0e66B448543a53B88626D0Ea ",
		})
		require.NoError(t, err)
		require.Len(t, addresses, 2)
		assert.Equal(t, common.HexToAddress("0xaf35680c243ab73bf90d3704688c6038f127f3b0"), addresses[0])
		assert.Equal(t, "0x42792048c8519e2B0e66B448543a53B88626D0Ea", addresses[1].Hex())
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseAddresses(nil)
		require.ErrorIs(t, err, ErrInvalidMembers)
		assert.Contains(t, err.Error(), "members")
	})

	t.Run("All problems reported", func(t *testing.T) {
		_, err := ParseAddresses([]string{
			"0x42792048c8519e2B0e66B448543a53B88626D0Ea",
			"0xnothex",
			"0x0000000000000000000000000000000000000000",
			"0x42792048c8519e2b0e66b448543a53b88626d0ea",
		})
		require.ErrorIs(t, err, ErrInvalidMembers)
		assert.Contains(t, err.Error(), "members[1]")
		assert.Contains(t, err.Error(), "members[2]")
		assert.Contains(t, err.Error(), "members[3]")
		assert.Contains(t, err.Error(), "zero address")
		assert.Contains(t, err.Error(), "first at index 0")
	})
}
