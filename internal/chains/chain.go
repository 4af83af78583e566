// Package chains provides the artifact builder interfaces and the types shared
// by the EVM chain module.
package chains

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Builder locates and parses compiled artifacts for a specific build tool
type Builder interface {
	// Metadata
	Name() string        // "hardhat", "foundry"
	DisplayName() string // "Hardhat", "Foundry"

	// Detection
	Detect(dir string) (bool, error)
	ConfigFile() string // "hardhat.config.ts", "foundry.toml"

	// Artifact handling
	Find(dir string, contractName string) (string, error)
	Parse(artifactPath string) (*Artifact, error)
	VerificationInput(dir string, artifact *Artifact) (*VerificationInput, error)
}

// Artifact is a compiled EVM contract
type Artifact struct {
	Name             string          `json:"name"`
	SourcePath       string          `json:"sourcePath"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Compiler         EVMCompiler     `json:"compiler"`

	// BuildInfoPath points at the build-info file that produced this artifact, when known
	BuildInfoPath string `json:"buildInfoPath,omitempty"`
}

// FullyQualifiedName returns "sourcePath:Name", the form explorers expect
func (a *Artifact) FullyQualifiedName() string {
	if a.SourcePath == "" {
		return a.Name
	}
	return a.SourcePath + ":" + a.Name
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.20+commit.a1b2c3d4"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"`
	ViaIR      bool            `json:"viaIR"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// VerificationInput is everything an explorer needs to recompile a contract
type VerificationInput struct {
	StandardJSON       []byte
	SolcLongVersion    string
	FullyQualifiedName string
}

// Registry holds the known builders
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates a new builder registry
func NewRegistry(builders ...Builder) *Registry {
	r := &Registry{
		builders: make(map[string]Builder),
	}
	for _, b := range builders {
		r.Register(b)
	}
	return r
}

// Register adds a builder to the registry
func (r *Registry) Register(b Builder) {
	r.builders[b.Name()] = b
}

// Get retrieves a builder by name
func (r *Registry) Get(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// List returns all registered builders sorted by name
func (r *Registry) List() []Builder {
	builders := make([]Builder, 0, len(r.builders))
	for _, b := range r.builders {
		builders = append(builders, b)
	}
	sort.Slice(builders, func(i, j int) bool { return builders[i].Name() < builders[j].Name() })
	return builders
}

// Detect returns the first builder (by name) whose config file is present in dir
func (r *Registry) Detect(dir string) (Builder, error) {
	for _, b := range r.List() {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no supported builder detected in %s", dir)
}

// Resolve returns the named builder, or detects one when name is "auto" or empty
func (r *Registry) Resolve(name, dir string) (Builder, error) {
	if name == "" || name == "auto" {
		return r.Detect(dir)
	}
	b, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown builder %q", name)
	}
	return b, nil
}
