package allowlist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// LoadMembers reads a member file. JSON and YAML files hold an array of address
// strings; any other file is read as one address per line, with blank lines and
// lines starting with # ignored.
func LoadMembers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read member file %s: %w", path, err)
	}

	members, err := parseMembers(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse member file %s: %w", path, err)
	}
	return members, nil
}

func parseMembers(ext string, data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)

	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml":
		return parseMemberArray(trimmed)
	}
	if bytes.HasPrefix(trimmed, []byte("[")) {
		return parseMemberArray(trimmed)
	}

	members := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		members = append(members, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// parseMemberArray decodes a JSON or YAML sequence; yaml.v3 reads both.
func parseMemberArray(data []byte) ([]string, error) {
	members := make([]string, 0)
	if len(data) == 0 {
		return members, nil
	}
	if err := yaml.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for i := range members {
		members[i] = strings.TrimSpace(members[i])
	}
	return members, nil
}

// ParseAddresses validates raw hex strings and returns them as addresses in input order.
// Every problem is reported at once: malformed hex, the zero address and repeats.
func ParseAddresses(raw []string) ([]common.Address, error) {
	var allErrors field.ErrorList
	membersPath := field.NewPath("members")

	if len(raw) == 0 {
		allErrors = append(allErrors, field.Required(membersPath, "at least one member address is required"))
		return nil, fmt.Errorf("%w: %w", ErrInvalidMembers, allErrors.ToAggregate())
	}

	addresses := make([]common.Address, 0, len(raw))
	seen := make(map[common.Address]int, len(raw))

	for i, s := range raw {
		idxPath := membersPath.Index(i)
		s = strings.TrimSpace(s)

		if !common.IsHexAddress(s) {
			allErrors = append(allErrors, field.Invalid(idxPath, s, "must be a 20 byte hex address"))
			continue
		}

		addr := common.HexToAddress(s)
		if addr == (common.Address{}) {
			allErrors = append(allErrors, field.Invalid(idxPath, s, "zero address cannot be a member"))
			continue
		}
		if first, ok := seen[addr]; ok {
			allErrors = append(allErrors, field.Duplicate(idxPath, fmt.Sprintf("%s (first at index %d)", addr.Hex(), first)))
			continue
		}

		seen[addr] = i
		addresses = append(addresses, addr)
	}

	if len(allErrors) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMembers, allErrors.ToAggregate())
	}
	return addresses, nil
}
