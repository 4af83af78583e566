package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureProject = "hardhat/testdata/project"

func TestProject_Artifact(t *testing.T) {
	p := NewProject(fixtureProject, NewHardhatBuilder())

	a, err := p.Artifact("CyberDuckCoin")
	require.NoError(t, err)
	assert.Equal(t, "CyberDuckCoin", a.Name)
	assert.Equal(t, "contracts/CyberDuckCoin.sol", a.SourcePath)

	again, err := p.Artifact("CyberDuckCoin")
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestProject_Artifact_NotFound(t *testing.T) {
	p := NewProject(fixtureProject, NewHardhatBuilder())

	_, err := p.Artifact("Missing")
	assert.Error(t, err)
}

func TestProject_EncodeConstructorArgs(t *testing.T) {
	p := NewProject(fixtureProject, NewHardhatBuilder())

	encoded, err := p.EncodeConstructorArgs("CyberDuckCoin", []any{"CyberDuckCoin", "CDC"})
	require.NoError(t, err)

	// Two dynamic strings: two offsets, then length+data for each
	want := "" +
		"0000000000000000000000000000000000000000000000000000000000000040" +
		"0000000000000000000000000000000000000000000000000000000000000080" +
		"000000000000000000000000000000000000000000000000000000000000000d" +
		"43796265724475636b436f696e00000000000000000000000000000000000000" +
		"0000000000000000000000000000000000000000000000000000000000000003" +
		"4344430000000000000000000000000000000000000000000000000000000000"
	assert.Equal(t, want, encoded)
}

func TestProject_EncodeConstructorArgs_WrongArity(t *testing.T) {
	p := NewProject(fixtureProject, NewHardhatBuilder())

	_, err := p.EncodeConstructorArgs("CyberDuckCoin", []any{"CyberDuckCoin"})
	assert.Error(t, err)
}

func TestProject_VerificationInput(t *testing.T) {
	p := NewProject(fixtureProject, NewHardhatBuilder())

	input, err := p.VerificationInput("CyberDuckCoin")
	require.NoError(t, err)
	assert.Equal(t, "0.8.20+commit.a1b2c3d4", input.SolcLongVersion)
	assert.Equal(t, "contracts/CyberDuckCoin.sol:CyberDuckCoin", input.FullyQualifiedName)
	assert.Contains(t, string(input.StandardJSON), `"language"`)
}
