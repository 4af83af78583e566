package evm

import (
	"bytes"
)

// CBOR metadata marker (Solidity >=0.6.0) - "ipfs" in CBOR
var metadataMarker = []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}

// Match types reported by CompareBytecode
const (
	MatchFull    = "full"
	MatchPartial = "partial"
	MatchNone    = "none"
)

// CodeMatch is the outcome of comparing on-chain runtime code with an artifact
type CodeMatch struct {
	Match     bool
	MatchType string // MatchFull, MatchPartial or MatchNone
	Message   string
}

// StripMetadata removes the CBOR metadata appended to bytecode
func StripMetadata(bytecode []byte) []byte {
	// Find last occurrence of metadata marker
	idx := bytes.LastIndex(bytecode, metadataMarker)
	if idx == -1 {
		return bytecode // No metadata found
	}
	// Back up to find the length prefix (2 bytes before marker)
	if idx >= 2 {
		return bytecode[:idx-2]
	}
	return bytecode
}

// CompareBytecode compares deployed runtime code to the artifact's deployed bytecode
func CompareBytecode(deployed, artifact []byte) *CodeMatch {
	if len(deployed) == 0 {
		return &CodeMatch{
			MatchType: MatchNone,
			Message:   "No code at address",
		}
	}

	if bytes.Equal(deployed, artifact) {
		return &CodeMatch{
			Match:     true,
			MatchType: MatchFull,
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	if bytes.Equal(StripMetadata(deployed), StripMetadata(artifact)) {
		return &CodeMatch{
			Match:     true,
			MatchType: MatchPartial,
			Message:   "Executable code matches, metadata differs",
		}
	}

	// Immutables are patched in at construction time, so a length match is still worth reporting
	if len(deployed) == len(artifact) {
		return &CodeMatch{
			MatchType: MatchNone,
			Message:   "Bytecode differs but has the same length (immutable values?)",
		}
	}

	return &CodeMatch{
		MatchType: MatchNone,
		Message:   "Bytecode does not match",
	}
}
