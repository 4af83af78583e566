package foundry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArtifact creates out/{source}/{name}.json with the given compilation target
func writeArtifact(t *testing.T, dir, sourceFile, name, target string) string {
	t.Helper()
	artifactDir := filepath.Join(dir, "out", sourceFile)
	require.NoError(t, os.MkdirAll(artifactDir, 0755))

	artifact := map[string]any{
		"abi": []map[string]any{
			{"type": "constructor", "inputs": []map[string]any{{"name": "name_", "type": "string"}, {"name": "symbol_", "type": "string"}}},
		},
		"bytecode":         map[string]any{"object": "0x6080604052"},
		"deployedBytecode": map[string]any{"object": "6080604052"},
		"rawMetadata":      `{"compiler":{"version":"0.8.20+commit.a1b2c3d4"},"language":"Solidity","settings":{"compilationTarget":{"` + target + `":"` + name + `"},"evmVersion":"paris","optimizer":{"enabled":true,"runs":200}}}`,
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	path := filepath.Join(artifactDir, name+".json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeBuildInfo(t *testing.T, dir, file, source, name string) {
	t.Helper()
	buildInfoDir := filepath.Join(dir, "out", "build-info")
	require.NoError(t, os.MkdirAll(buildInfoDir, 0755))

	info := map[string]any{
		"id":              file,
		"solcLongVersion": "0.8.20+commit.a1b2c3d4",
		"input": map[string]any{
			"language":   "Solidity",
			"sources":    map[string]any{source: map[string]any{"content": "contract " + name + " {}"}},
			"settings":   map[string]any{"optimizer": map[string]any{"enabled": true, "runs": 200}},
			"allowPaths": []string{"/project"},
			"basePath":   "/project",
		},
		"output": map[string]any{
			"contracts": map[string]any{source: map[string]any{name: map[string]any{}}},
		},
	}
	data, err := json.Marshal(info)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(buildInfoDir, file), data, 0644))
}

func TestBuilder_Metadata(t *testing.T) {
	b := New()

	assert.Equal(t, "foundry", b.Name())
	assert.Equal(t, "Foundry", b.DisplayName())
	assert.Equal(t, "foundry.toml", b.ConfigFile())
}

func TestBuilder_Detect(t *testing.T) {
	b := New()

	t.Run("with foundry.toml", func(t *testing.T) {
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte("[profile.default]"), 0644)
		require.NoError(t, err)

		detected, err := b.Detect(dir)
		require.NoError(t, err)
		assert.True(t, detected)
	})

	t.Run("without foundry.toml", func(t *testing.T) {
		dir := t.TempDir()

		detected, err := b.Detect(dir)
		require.NoError(t, err)
		assert.False(t, detected)
	})
}

func TestBuilder_Find(t *testing.T) {
	b := New()

	t.Run("single artifact", func(t *testing.T) {
		dir := t.TempDir()
		want := writeArtifact(t, dir, "CyberDuckCoin.sol", "CyberDuckCoin", "src/CyberDuckCoin.sol")

		path, err := b.Find(dir, "CyberDuckCoin")
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("prefers src over lib", func(t *testing.T) {
		dir := t.TempDir()
		want := writeArtifact(t, dir, "Token.sol", "Token", "src/Token.sol")
		writeArtifact(t, dir, "LibToken.sol", "Token", "lib/openzeppelin/Token.sol")

		path, err := b.Find(dir, "Token")
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("missing out directory", func(t *testing.T) {
		_, err := b.Find(t.TempDir(), "Token")
		assert.ErrorContains(t, err, "forge build")
	})

	t.Run("unknown contract", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifact(t, dir, "Token.sol", "Token", "src/Token.sol")

		_, err := b.Find(dir, "Other")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestBuilder_Parse(t *testing.T) {
	b := New()

	t.Run("valid artifact", func(t *testing.T) {
		dir := t.TempDir()
		path := writeArtifact(t, dir, "CyberDuckCoin.sol", "CyberDuckCoin", "src/CyberDuckCoin.sol")

		artifact, err := b.Parse(path)
		require.NoError(t, err)
		assert.Equal(t, "CyberDuckCoin", artifact.Name)
		assert.Equal(t, "src/CyberDuckCoin.sol", artifact.SourcePath)
		assert.Equal(t, "0x6080604052", artifact.Bytecode)
		assert.Equal(t, "0x6080604052", artifact.DeployedBytecode, "hex prefix is added")
		assert.Equal(t, "0.8.20+commit.a1b2c3d4", artifact.Compiler.Version)
		assert.True(t, artifact.Compiler.Optimizer.Enabled)
	})

	t.Run("interface without bytecode", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "IToken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"abi":[],"bytecode":{"object":"0x"}}`), 0644))

		_, err := b.Parse(path)
		assert.ErrorContains(t, err, "no bytecode")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

		_, err := b.Parse(path)
		assert.ErrorContains(t, err, "parsing artifact JSON")
	})
}

func TestBuilder_VerificationInput(t *testing.T) {
	b := New()
	dir := t.TempDir()
	path := writeArtifact(t, dir, "CyberDuckCoin.sol", "CyberDuckCoin", "src/CyberDuckCoin.sol")
	writeBuildInfo(t, dir, "aaa.json", "src/Other.sol", "Other")
	writeBuildInfo(t, dir, "bbb.json", "src/CyberDuckCoin.sol", "CyberDuckCoin")

	artifact, err := b.Parse(path)
	require.NoError(t, err)

	vi, err := b.VerificationInput(dir, artifact)
	require.NoError(t, err)
	assert.Equal(t, "src/CyberDuckCoin.sol:CyberDuckCoin", vi.FullyQualifiedName)
	assert.Equal(t, "0.8.20+commit.a1b2c3d4", vi.SolcLongVersion)

	var input map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(vi.StandardJSON, &input))
	assert.Contains(t, string(input["sources"]), "src/CyberDuckCoin.sol")
	assert.NotContains(t, input, "allowPaths")
	assert.NotContains(t, input, "basePath")
}

func TestBuilder_VerificationInputNotFound(t *testing.T) {
	b := New()
	dir := t.TempDir()
	path := writeArtifact(t, dir, "CyberDuckCoin.sol", "CyberDuckCoin", "src/CyberDuckCoin.sol")
	writeBuildInfo(t, dir, "aaa.json", "src/Other.sol", "Other")

	artifact, err := b.Parse(path)
	require.NoError(t, err)

	_, err = b.VerificationInput(dir, artifact)
	assert.ErrorContains(t, err, "build-info not found")
}
