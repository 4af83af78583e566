package evm

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/cyberduckcoin/cdc-deploy/internal/chains"
)

// Project gives access to the compiled artifacts of one contract project
type Project struct {
	root      string
	builder   chains.Builder
	artifacts map[string]*chains.Artifact
}

// NewProject creates a project rooted at dir, read with the given builder
func NewProject(root string, builder chains.Builder) *Project {
	return &Project{
		root:      root,
		builder:   builder,
		artifacts: make(map[string]*chains.Artifact),
	}
}

// Artifact finds and parses the artifact for a contract
func (p *Project) Artifact(contract string) (*chains.Artifact, error) {
	if a, ok := p.artifacts[contract]; ok {
		return a, nil
	}

	path, err := p.builder.Find(p.root, contract)
	if err != nil {
		return nil, err
	}

	a, err := p.builder.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing artifact for %s: %w", contract, err)
	}

	p.artifacts[contract] = a
	return a, nil
}

// ABI parses the contract ABI
func (p *Project) ABI(contract string) (abi.ABI, error) {
	a, err := p.Artifact(contract)
	if err != nil {
		return abi.ABI{}, err
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing ABI for %s: %w", contract, err)
	}
	return parsed, nil
}

// VerificationInput returns the standard JSON input the contract was compiled from
func (p *Project) VerificationInput(contract string) (*chains.VerificationInput, error) {
	a, err := p.Artifact(contract)
	if err != nil {
		return nil, err
	}
	return p.builder.VerificationInput(p.root, a)
}

// EncodeConstructorArgs ABI-encodes args against the contract constructor.
// The result is hex without a 0x prefix, as explorers expect it.
func (p *Project) EncodeConstructorArgs(contract string, args []any) (string, error) {
	parsed, err := p.ABI(contract)
	if err != nil {
		return "", err
	}

	packed, err := parsed.Pack("", args...)
	if err != nil {
		return "", fmt.Errorf("encoding constructor arguments for %s: %w", contract, err)
	}
	return hex.EncodeToString(packed), nil
}
