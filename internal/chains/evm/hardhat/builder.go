// Package hardhat provides the Hardhat builder for EVM contracts.
package hardhat

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberduckcoin/cdc-deploy/internal/chains"
)

// configFiles are the names hardhat accepts, in lookup order
var configFiles = []string{"hardhat.config.ts", "hardhat.config.js", "hardhat.config.cjs", "hardhat.config.mjs"}

// Builder implements chains.Builder for Hardhat projects
type Builder struct{}

// New creates a new Hardhat builder
func New() *Builder {
	return &Builder{}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "hardhat"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Hardhat"
}

// ConfigFile returns the primary config file name
func (b *Builder) ConfigFile() string {
	return configFiles[0]
}

// Detect checks if a directory is a Hardhat project
func (b *Builder) Detect(dir string) (bool, error) {
	for _, name := range configFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// Find locates artifacts/contracts/{Source}.sol/{Contract}.json
func (b *Builder) Find(dir string, contractName string) (string, error) {
	root := filepath.Join(dir, "artifacts", "contracts")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return "", fmt.Errorf("artifacts directory not found - run 'npx hardhat compile' first")
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != contractName+".json" {
			return nil
		}
		if !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking artifacts: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("artifact for contract %s not found in %s", contractName, root)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("contract name %s is ambiguous: %d artifacts found", contractName, len(matches))
	}
}

// Parse parses a Hardhat artifact file and its debug file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw HardhatArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	// Skip if no bytecode (interfaces, abstract contracts)
	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("contract %s has no bytecode (likely an interface or abstract)", raw.ContractName)
	}

	artifact := &chains.Artifact{
		Name:             raw.ContractName,
		SourcePath:       raw.SourceName,
		ABI:              raw.ABI,
		Bytecode:         raw.Bytecode,
		DeployedBytecode: raw.DeployedBytecode,
	}

	buildInfoPath, err := resolveBuildInfo(artifactPath)
	if err != nil {
		return nil, err
	}
	artifact.BuildInfoPath = buildInfoPath

	info, err := chains.ReadBuildInfo(buildInfoPath)
	if err != nil {
		return nil, err
	}
	artifact.Compiler = info.Compiler()

	return artifact, nil
}

// VerificationInput returns the build-info input that produced the artifact
func (b *Builder) VerificationInput(dir string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	if artifact.BuildInfoPath == "" {
		return nil, fmt.Errorf("no build-info recorded for %s", artifact.Name)
	}

	info, err := chains.ReadBuildInfo(artifact.BuildInfoPath)
	if err != nil {
		return nil, err
	}
	if !info.HasContract(artifact.SourcePath, artifact.Name) {
		return nil, fmt.Errorf("build-info %s does not contain %s", filepath.Base(artifact.BuildInfoPath), artifact.FullyQualifiedName())
	}

	stdJSON, err := info.StandardJSON()
	if err != nil {
		return nil, err
	}

	return &chains.VerificationInput{
		StandardJSON:       stdJSON,
		SolcLongVersion:    info.SolcLongVersion,
		FullyQualifiedName: artifact.FullyQualifiedName(),
	}, nil
}

// resolveBuildInfo follows {Contract}.dbg.json to the build-info file
func resolveBuildInfo(artifactPath string) (string, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return "", fmt.Errorf("reading debug file: %w", err)
	}

	var dbg DebugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return "", fmt.Errorf("parsing debug file: %w", err)
	}
	if dbg.BuildInfo == "" {
		return "", fmt.Errorf("debug file %s has no buildInfo", dbgPath)
	}

	// buildInfo is relative to the debug file's directory
	return filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo)), nil
}

// HardhatArtifact represents the structure of a Hardhat artifact (hh-sol-artifact-1)
type HardhatArtifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
}

// DebugFile represents {Contract}.dbg.json (hh-sol-dbg-1)
type DebugFile struct {
	Format    string `json:"_format"`
	BuildInfo string `json:"buildInfo"`
}
