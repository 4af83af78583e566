// Package foundry provides the Foundry builder for EVM contracts.
package foundry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberduckcoin/cdc-deploy/internal/chains"
)

// Builder implements chains.Builder for Foundry projects
type Builder struct{}

// New creates a new Foundry builder
func New() *Builder {
	return &Builder{}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "foundry"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Foundry"
}

// ConfigFile returns the config file name
func (b *Builder) ConfigFile() string {
	return "foundry.toml"
}

// Detect checks if a directory is a Foundry project
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, b.ConfigFile()))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Find locates out/{Source}.sol/{Contract}.json, preferring sources under src/
func (b *Builder) Find(dir string, contractName string) (string, error) {
	outDir := filepath.Join(dir, "out")
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return "", fmt.Errorf("out directory not found - run 'forge build' first")
	}

	var matches []string
	err := filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != contractName+".json" || !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking out directory: %w", err)
	}

	// Same-named contracts from lib/ are dependencies; only src/ counts when both exist
	if len(matches) > 1 {
		var fromSrc []string
		for _, m := range matches {
			if sourcePath, err := b.getArtifactSourcePath(m); err == nil && strings.HasPrefix(sourcePath, "src/") {
				fromSrc = append(fromSrc, m)
			}
		}
		matches = fromSrc
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("artifact for contract %s not found in %s", contractName, outDir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("contract name %s is ambiguous: %d artifacts found", contractName, len(matches))
	}
}

// getArtifactSourcePath reads an artifact and returns its source path
func (b *Builder) getArtifactSourcePath(artifactPath string) (string, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return "", err
	}

	var raw FoundryArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}

	// Parse metadata to get source path
	if raw.RawMetadata == "" {
		return "", fmt.Errorf("no metadata")
	}

	var metadata FoundryMetadata
	if err := json.Unmarshal([]byte(raw.RawMetadata), &metadata); err != nil {
		return "", err
	}

	return getFirstKey(metadata.Settings.CompilationTarget), nil
}

// Parse parses a Foundry artifact file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw FoundryArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	// Skip if no bytecode (interfaces, libraries without code)
	if raw.Bytecode.Object == "" || raw.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	// Parse metadata
	var metadata FoundryMetadata
	if raw.RawMetadata != "" {
		_ = json.Unmarshal([]byte(raw.RawMetadata), &metadata) // Non-fatal, continue without metadata
	}

	return &chains.Artifact{
		Name:             strings.TrimSuffix(filepath.Base(artifactPath), ".json"),
		SourcePath:       getFirstKey(metadata.Settings.CompilationTarget),
		ABI:              raw.ABI,
		Bytecode:         withHexPrefix(raw.Bytecode.Object),
		DeployedBytecode: withHexPrefix(raw.DeployedBytecode.Object),
		Compiler: chains.EVMCompiler{
			Version:    metadata.Compiler.Version,
			EVMVersion: metadata.Settings.EVMVersion,
			ViaIR:      metadata.Settings.ViaIR,
			Optimizer: chains.OptimizerConfig{
				Enabled: metadata.Settings.Optimizer.Enabled,
				Runs:    metadata.Settings.Optimizer.Runs,
			},
		},
	}, nil
}

// VerificationInput extracts Standard JSON Input and full solc version from the
// build-info whose output contains contracts[sourcePath][contractName].
func (b *Builder) VerificationInput(dir string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	buildInfoDir := filepath.Join(dir, "out", "build-info")

	entries, err := os.ReadDir(buildInfoDir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory (run 'forge build --build-info'): %w", err)
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := chains.ReadBuildInfo(filepath.Join(buildInfoDir, entry.Name()))
		if err != nil {
			continue
		}
		if !info.HasContract(artifact.SourcePath, artifact.Name) {
			continue
		}

		stdJSON, err := info.StandardJSON()
		if err != nil {
			continue
		}

		version := info.SolcLongVersion
		if version == "" {
			version = artifact.Compiler.Version
		}

		return &chains.VerificationInput{
			StandardJSON:       stdJSON,
			SolcLongVersion:    version,
			FullyQualifiedName: artifact.FullyQualifiedName(),
		}, nil
	}

	return nil, fmt.Errorf("build-info not found for contract %s", artifact.FullyQualifiedName())
}

func withHexPrefix(s string) string {
	if s == "" || strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}

// FoundryArtifact represents the structure of a Foundry artifact JSON file
type FoundryArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         BytecodeObject  `json:"bytecode"`
	DeployedBytecode BytecodeObject  `json:"deployedBytecode"`
	RawMetadata      string          `json:"rawMetadata"`
}

// BytecodeObject represents bytecode in a Foundry artifact
type BytecodeObject struct {
	Object string `json:"object"`
}

// FoundryMetadata represents the parsed rawMetadata field
type FoundryMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string       `json:"language"`
	Settings SettingsMeta `json:"settings"`
}

// SettingsMeta contains compiler settings
type SettingsMeta struct {
	CompilationTarget map[string]string `json:"compilationTarget"`
	EVMVersion        string            `json:"evmVersion"`
	Optimizer         struct {
		Enabled bool `json:"enabled"`
		Runs    int  `json:"runs"`
	} `json:"optimizer"`
	ViaIR bool `json:"viaIR"`
}

// getFirstKey returns the first key from a map
func getFirstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
