package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOverload = "crossbind/overload/v1"
	DomainTree     = "crossbind/tree/v1"
	DomainModel    = "crossbind/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// overloadObject is the canonical hashing shape of an overload. Only
// fields that change dispatch or conversion participate.
func overloadObject(ov *Overload) map[string]any {
	args := make([]any, 0, len(ov.Args))
	for _, a := range ov.Args {
		arg := map[string]any{
			"name": a.Name,
			"type": string(a.EffectiveType()),
		}
		if a.HasDefault() {
			arg["default"] = a.Default
		}
		if a.Removed {
			arg["removed"] = true
		}
		if a.Ownership != OwnershipDefault {
			arg["ownership"] = string(a.Ownership)
		}
		args = append(args, arg)
	}
	obj := map[string]any{
		"callable": ov.Callable,
		"kind":     string(ov.Kind),
		"args":     args,
		"return":   string(ov.EffectiveReturn()),
	}
	if ov.Reverse {
		obj["reverse"] = true
	}
	if ov.ReturnConversion != "" {
		obj["return_conversion"] = ov.ReturnConversion
	}
	return obj
}

// OverloadHash computes the content hash of an overload signature.
func OverloadHash(ov *Overload) (string, error) {
	canonical, err := MarshalCanonical(overloadObject(ov))
	if err != nil {
		return "", fmt.Errorf("OverloadHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOverload, canonical), nil
}

// TreeHash computes the content hash of a rendered decision tree.
func TreeHash(callable, rendered string) string {
	canonical, err := MarshalCanonical(map[string]any{
		"callable": callable,
		"tree":     rendered,
	})
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return hashWithDomain(DomainTree, canonical)
}

// ModelHash computes the content hash of every overload in a model.
// The hash does not depend on declaration order across callables.
func ModelHash(m *Model) (string, error) {
	hashes := make([]string, 0, len(m.overloads))
	for _, ov := range m.overloads {
		h, err := OverloadHash(ov)
		if err != nil {
			return "", fmt.Errorf("ModelHash: %s: %w", ov.Callable, err)
		}
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	canonical, err := MarshalCanonical(hashes)
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// MustOverloadHash is like OverloadHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOverloadHash(ov *Overload) string {
	h, err := OverloadHash(ov)
	if err != nil {
		panic(err)
	}
	return h
}
