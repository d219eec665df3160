package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalTreeSnapshot serializes a TreeSnapshot to JSON bytes.
func MarshalTreeSnapshot(ts *TreeSnapshot) ([]byte, error) {
	if ts == nil {
		return nil, fmt.Errorf("cannot marshal nil TreeSnapshot")
	}

	data, err := json.Marshal(ts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TreeSnapshot to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalTreeSnapshot deserializes a TreeSnapshot from JSON bytes.
func UnmarshalTreeSnapshot(data []byte) (*TreeSnapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var ts TreeSnapshot
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to TreeSnapshot: %w", err)
	}

	return &ts, nil
}
