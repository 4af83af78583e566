// Package validation provides input validation for cdc-deploy.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Solidity identifiers: letters, digits, '_' and '$', not starting with a digit
var contractNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateContractName validates a Solidity contract name
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if !contractNameRegex.MatchString(name) {
		return fmt.Errorf("invalid contract name %q: must be a Solidity identifier", name)
	}
	return nil
}

// ValidateConstructorArgs rejects empty or whitespace-only string arguments
func ValidateConstructorArgs(args []any) error {
	for i, a := range args {
		if s, ok := a.(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Errorf("constructor argument %d is empty", i)
		}
	}
	return nil
}

// ValidateCompilerVersion validates a solc version as reported by build-info
// ("0.8.20+commit.a1b2c3d4", with or without a leading 'v').
func ValidateCompilerVersion(v string) error {
	normalized := strings.TrimPrefix(v, "v")
	if normalized == "" {
		return errors.New("compiler version cannot be empty")
	}
	if !semver.IsValid("v" + normalized) {
		return fmt.Errorf("invalid compiler version %q", v)
	}
	// Require major.minor.patch
	core := strings.SplitN(strings.SplitN(normalized, "+", 2)[0], "-", 2)[0]
	if strings.Count(core, ".") != 2 {
		return fmt.Errorf("invalid compiler version %q: must be in format X.Y.Z", v)
	}
	return nil
}

// NormalizeCompilerVersion returns the version in the form explorers expect ("v0.8.20+commit.a1b2c3d4")
func NormalizeCompilerVersion(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidatePrivateKey checks that a hex private key is 32 bytes, with or without 0x
func ValidatePrivateKey(key string) error {
	key = strings.TrimPrefix(key, "0x")
	if len(key) != 64 {
		return errors.New("private key must be 32 bytes of hex")
	}
	for _, c := range key {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return errors.New("private key contains non-hex characters")
		}
	}
	return nil
}
