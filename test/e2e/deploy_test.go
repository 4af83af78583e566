//go:build e2e

package e2e

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberduckcoin/cdc-deploy/internal/deployments/domain"
	"github.com/cyberduckcoin/cdc-deploy/internal/explorer/etherscan/etherscantest"
	verification "github.com/cyberduckcoin/cdc-deploy/internal/verification/domain"
)

// encodedArgs is the ABI encoding of ("CyberDuckCoin", "CDC")
const encodedArgs = "" +
	"0000000000000000000000000000000000000000000000000000000000000040" +
	"0000000000000000000000000000000000000000000000000000000000000080" +
	"000000000000000000000000000000000000000000000000000000000000000d" +
	"43796265724475636b436f696e00000000000000000000000000000000000000" +
	"0000000000000000000000000000000000000000000000000000000000000003" +
	"4344430000000000000000000000000000000000000000000000000000000000"

func TestDeploy_FoundryProject(t *testing.T) {
	explorer := etherscantest.NewServer()
	defer explorer.Close()

	res := runDeploy(t, testCtx.FoundryProjectDir, explorer)
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
	require.Len(t, lines, 3)
	address := deployedAddress(t, res.stdout)
	assert.Equal(t, "Verifying contract on Etherscan...", lines[1])
	assert.Equal(t, "Successfully verified contract CyberDuckCoin on the block explorer.", lines[2])

	// Constructor ran with the same arguments that were submitted for verification
	assert.Equal(t, "CyberDuckCoin", callString(t, address, "name"))
	assert.Equal(t, "CDC", callString(t, address, "symbol"))

	subs := explorer.Submissions()
	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, "31337", sub.ChainID)
	assert.Equal(t, "E2EKEY", sub.APIKey)
	assert.Equal(t, address.Hex(), sub.Address)
	assert.Equal(t, "src/CyberDuckCoin.sol:CyberDuckCoin", sub.ContractName)
	assert.Equal(t, verification.CodeFormatStandardJSON, sub.CodeFormat)
	assert.True(t, strings.HasPrefix(sub.CompilerVersion, "v0.8.20+commit."), sub.CompilerVersion)
	assert.Equal(t, encodedArgs, sub.ConstructorArguments)
	assert.Contains(t, sub.SourceCode, "contract CyberDuckCoin")

	// Logs stay on stderr
	assert.Contains(t, res.stderr, `"run_id"`)
	assert.NotContains(t, res.stdout, "run_id")
}

func TestDeploy_HardhatFixture(t *testing.T) {
	explorer := etherscantest.NewServer()
	defer explorer.Close()

	res := runDeploy(t, hardhatFixtureDir(t), explorer)
	require.NoError(t, res.err)

	address := deployedAddress(t, res.stdout)
	assert.Equal(t, 1, strings.Count(res.stdout, address.Hex()))

	subs := explorer.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "contracts/CyberDuckCoin.sol:CyberDuckCoin", subs[0].ContractName)
	assert.Equal(t, "v0.8.20+commit.a1b2c3d4", subs[0].CompilerVersion)
	assert.Equal(t, encodedArgs, subs[0].ConstructorArguments)

	_, err := hex.DecodeString(subs[0].ConstructorArguments)
	assert.NoError(t, err)
}

func TestDeploy_VerificationFailsAfterDeploy(t *testing.T) {
	explorer := etherscantest.NewServer(etherscantest.WithStatuses(
		"Pending in queue",
		"Fail - Unable to verify. Compiled contract deployment bytecode does NOT match the transaction deployment bytecode.",
	))
	defer explorer.Close()

	res := runDeploy(t, hardhatFixtureDir(t), explorer)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, domain.ErrVerificationFailed)
	assert.ErrorIs(t, res.err, verification.ErrSourceMismatch)

	// Deployment was reported before verification failed
	deployedAddress(t, res.stdout)
	assert.NotContains(t, res.stdout, "Successfully verified")
}

func TestDeploy_AlreadyVerified(t *testing.T) {
	t.Run("fatal by default", func(t *testing.T) {
		explorer := etherscantest.NewServer(etherscantest.WithSubmitError("Contract source code already verified"))
		defer explorer.Close()

		res := runDeploy(t, hardhatFixtureDir(t), explorer)
		assert.ErrorIs(t, res.err, verification.ErrAlreadyVerified)
	})

	t.Run("tolerated when enabled", func(t *testing.T) {
		explorer := etherscantest.NewServer(etherscantest.WithSubmitError("Contract source code already verified"))
		defer explorer.Close()

		res := runDeploy(t, hardhatFixtureDir(t), explorer, "VERIFY_TOLERATE_ALREADY_VERIFIED=true")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "The contract already verified")
	})
}

func TestDeploy_UnfundedAccountNeverVerifies(t *testing.T) {
	explorer := etherscantest.NewServer()
	defer explorer.Close()

	// Valid key with no balance on anvil
	res := runDeploy(t, hardhatFixtureDir(t), explorer,
		"PRIVATE_KEY=0000000000000000000000000000000000000000000000000000000000000001")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, domain.ErrDeploymentFailed)
	assert.Contains(t, res.err.Error(), "insufficient funds")
	assert.Empty(t, explorer.Submissions())
	assert.Zero(t, explorer.Polls())
	assert.Empty(t, res.stdout)
}
