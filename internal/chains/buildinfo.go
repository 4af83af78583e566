package chains

import (
	"encoding/json"
	"fmt"
	"os"
)

// BuildInfo is a solc build-info file (hh-sol-build-info-1 format), written by
// both Hardhat and Foundry
type BuildInfo struct {
	ID              string          `json:"id"`
	Format          string          `json:"_format"`
	SolcVersion     string          `json:"solcVersion"`     // Short: "0.8.28"
	SolcLongVersion string          `json:"solcLongVersion"` // Full: "0.8.28+commit.7893614a"
	Input           json.RawMessage `json:"input"`           // Standard JSON Input
	Output          json.RawMessage `json:"output"`          // Compilation output
}

// buildInfoSettings is the subset of input.settings carried onto an Artifact
type buildInfoSettings struct {
	Settings struct {
		EVMVersion string `json:"evmVersion"`
		ViaIR      bool   `json:"viaIR"`
		Optimizer  struct {
			Enabled bool `json:"enabled"`
			Runs    int  `json:"runs"`
		} `json:"optimizer"`
	} `json:"settings"`
}

// ReadBuildInfo reads and decodes a build-info file
func ReadBuildInfo(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build-info: %w", err)
	}

	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing build-info %s: %w", path, err)
	}
	if len(info.Input) == 0 {
		return nil, fmt.Errorf("build-info %s has no input", path)
	}
	return &info, nil
}

// HasContract reports whether output.contracts[sourcePath][contractName] exists.
// Build-info files written without output fall back to input.sources.
func (b *BuildInfo) HasContract(sourcePath, contractName string) bool {
	var output struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	}
	if len(b.Output) > 0 {
		if err := json.Unmarshal(b.Output, &output); err != nil {
			return false
		}
	}
	if len(output.Contracts) == 0 {
		return b.hasSource(sourcePath)
	}
	sourceContracts, ok := output.Contracts[sourcePath]
	if !ok {
		return false
	}
	_, ok = sourceContracts[contractName]
	return ok
}

func (b *BuildInfo) hasSource(sourcePath string) bool {
	var input struct {
		Sources map[string]json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal(b.Input, &input); err != nil {
		return false
	}
	_, ok := input.Sources[sourcePath]
	return ok
}

// Compiler returns the compiler details recorded in the build input
func (b *BuildInfo) Compiler() EVMCompiler {
	var in buildInfoSettings
	_ = json.Unmarshal(b.Input, &in) // Missing settings leave zero values

	return EVMCompiler{
		Version:    b.SolcLongVersion,
		EVMVersion: in.Settings.EVMVersion,
		ViaIR:      in.Settings.ViaIR,
		Optimizer: OptimizerConfig{
			Enabled: in.Settings.Optimizer.Enabled,
			Runs:    in.Settings.Optimizer.Runs,
		},
	}
}

// StandardJSON returns the build input with the top-level keys solc rejects removed.
// The standard JSON input spec only allows: language, sources, settings.
func (b *BuildInfo) StandardJSON() ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b.Input, &m); err != nil {
		return nil, fmt.Errorf("parsing build input: %w", err)
	}
	for key := range m {
		switch key {
		case "language", "sources", "settings":
		default:
			delete(m, key)
		}
	}
	return json.Marshal(m)
}
