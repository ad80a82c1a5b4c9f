package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// marshalSignatures serializes expanded signatures as canonical JSON.
func marshalSignatures(sigs []string) (string, error) {
	if sigs == nil {
		sigs = []string{}
	}
	data, err := ir.MarshalCanonical(sigs)
	if err != nil {
		return "", fmt.Errorf("marshal signatures: %w", err)
	}
	return string(data), nil
}

func unmarshalSignatures(data string) ([]string, error) {
	var sigs []string
	if err := json.Unmarshal([]byte(data), &sigs); err != nil {
		return nil, fmt.Errorf("unmarshal signatures: %w", err)
	}
	return sigs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
