//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cyberduckcoin/cdc-deploy/internal/cli"
	"github.com/cyberduckcoin/cdc-deploy/internal/explorer/etherscan/etherscantest"
)

const (
	foundryImage = "ghcr.io/foundry-rs/foundry:latest"

	// anvil's first default account
	anvilKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcab7dae784ff2ff80"
	anvilChainID = 31337
)

// TestContext holds shared test infrastructure
type TestContext struct {
	Anvil             testcontainers.Container
	RPCURL            string
	FoundryProjectDir string
}

// setupAnvilE starts an anvil node and returns its JSON-RPC URL (error-returning variant for TestMain)
func setupAnvilE(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        foundryImage,
		Entrypoint:   []string{"anvil"},
		Cmd:          []string{"--host", "0.0.0.0", "--chain-id", fmt.Sprint(anvilChainID)},
		ExposedPorts: []string{"8545/tcp"},
		WaitingFor:   wait.ForListeningPort("8545/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start anvil container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "8545/tcp", "http")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get anvil endpoint: %w", err)
	}

	return container, endpoint, nil
}

// buildFoundryProjectE copies the project to a temp dir and runs forge build in a
// Foundry container, writing artifacts to <dir>/out. Returns the project dir.
func buildFoundryProjectE(projectDir string) (string, error) {
	absProjectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute project path: %w", err)
	}
	if _, err := os.Stat(absProjectDir); err != nil {
		return "", fmt.Errorf("project directory does not exist %s: %w", absProjectDir, err)
	}

	workDir := filepath.Join(os.TempDir(), fmt.Sprintf("cdc-foundry-%s", uuid.New().String()))
	if err := os.CopyFS(workDir, os.DirFS(absProjectDir)); err != nil {
		return "", fmt.Errorf("copying project: %w", err)
	}

	// World-writable so the container user can write regardless of uid
	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o777); err != nil {
		os.RemoveAll(workDir)
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}
	if err := os.Chmod(outDir, 0o777); err != nil {
		os.RemoveAll(workDir)
		return "", err
	}

	// #nosec G204 -- controlled command
	cmd := exec.Command("docker", "run", "--rm",
		"-v", absProjectDir+":/project:ro",
		"-v", outDir+":/output",
		"-w", "/project",
		"--entrypoint", "/bin/sh",
		foundryImage,
		"-c", "forge build --build-info --out /output --cache-path /tmp/forge-cache")

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(workDir)
		return "", fmt.Errorf("failed to build Foundry project: %w\nOutput: %s", err, string(output))
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) == 0 {
		os.RemoveAll(workDir)
		return "", fmt.Errorf("build directory is empty")
	}

	return workDir, nil
}

// hardhatFixtureDir is the precompiled Hardhat project shared with the builder tests
func hardhatFixtureDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs("../../internal/chains/evm/hardhat/testdata/project")
	require.NoError(t, err)
	return dir
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// runDeploy runs the full command against anvil and the given explorer
func runDeploy(t *testing.T, projectDir string, explorer *etherscantest.Server, extraEnv ...string) runResult {
	t.Helper()

	for _, k := range []string{"CDC_CONFIG", "GAS_LIMIT", "ETHERSCAN_BROWSER_URL", "METRICS_TEXTFILE", "VERIFY_TOLERATE_ALREADY_VERIFIED", "BUILDER"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	t.Setenv("RPC_URL", testCtx.RPCURL)
	t.Setenv("PRIVATE_KEY", anvilKey)
	t.Setenv("CHAIN_ID", "")
	t.Setenv("ETHERSCAN_API_KEY", "E2EKEY")
	t.Setenv("ETHERSCAN_API_URL", explorer.APIURL())
	t.Setenv("ETHERSCAN_RATE_LIMIT", "50")
	t.Setenv("VERIFY_POLL_INTERVAL", "50ms")
	t.Setenv("PROJECT_ROOT", projectDir)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	for _, kv := range extraEnv {
		k, v, _ := strings.Cut(kv, "=")
		t.Setenv(k, v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("e2e")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(nil)
	err := cmd.ExecuteContext(ctx)

	if err != nil {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// deployedAddress extracts the address from the first stdout line
func deployedAddress(t *testing.T, stdout string) common.Address {
	t.Helper()
	line, _, _ := strings.Cut(stdout, "\n")
	addr, ok := strings.CutPrefix(line, "CyberDuckCoin Contract Address: ")
	require.True(t, ok, "unexpected first line %q", line)
	require.True(t, common.IsHexAddress(addr))
	return common.HexToAddress(addr)
}

// callString calls a no-argument string getter on a contract
func callString(t *testing.T, address common.Address, method string) string {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(fmt.Sprintf(
		`[{"type":"function","name":%q,"inputs":[],"outputs":[{"type":"string"}],"stateMutability":"view"}]`, method)))
	require.NoError(t, err)
	data, err := parsed.Pack(method)
	require.NoError(t, err)

	client, err := ethclient.Dial(testCtx.RPCURL)
	require.NoError(t, err)
	defer client.Close()

	out, err := client.CallContract(context.Background(), ethereum.CallMsg{To: &address, Data: data}, nil)
	require.NoError(t, err)

	values, err := parsed.Unpack(method, out)
	require.NoError(t, err)
	require.Len(t, values, 1)
	return values[0].(string)
}
