package evm

import (
	"github.com/cyberduckcoin/cdc-deploy/internal/chains"
	"github.com/cyberduckcoin/cdc-deploy/internal/chains/evm/foundry"
	"github.com/cyberduckcoin/cdc-deploy/internal/chains/evm/hardhat"
)

// NewHardhatBuilder creates a new Hardhat builder
func NewHardhatBuilder() chains.Builder {
	return hardhat.New()
}

// NewFoundryBuilder creates a new Foundry builder
func NewFoundryBuilder() chains.Builder {
	return foundry.New()
}

// DefaultRegistry returns a registry with all built-in EVM builders
func DefaultRegistry() *chains.Registry {
	return chains.NewRegistry(NewHardhatBuilder(), NewFoundryBuilder())
}
