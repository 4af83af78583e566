//go:build e2e

package e2e

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
)

var testCtx *TestContext

func TestMain(m *testing.M) {
	// Parse flags
	flag.Parse()

	// Check if Docker is available (testcontainers requirement)
	if os.Getenv("DOCKER_HOST") == "" && os.Getenv("TESTCONTAINERS_DOCKER_SOCKET") == "" {
		// testcontainers will use default docker socket, which should work on most systems
		log.Println("Using default Docker socket for testcontainers")
	}

	os.Exit(runSuite(m))
}

// runSuite owns the shared infrastructure so deferred cleanup runs before exit
func runSuite(m *testing.M) int {
	ctx := context.Background()
	testCtx = &TestContext{}

	// 1. Start anvil
	log.Println("Starting anvil container...")
	var err error
	testCtx.Anvil, testCtx.RPCURL, err = setupAnvilE(ctx)
	if err != nil {
		log.Printf("Failed to start anvil: %v", err)
		return 1
	}
	defer func() {
		if err := testCtx.Anvil.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate anvil container: %v", err)
		}
	}()
	log.Println("Anvil listening at:", testCtx.RPCURL)

	// 2. Build Foundry project
	log.Println("Building Foundry project...")
	testCtx.FoundryProjectDir, err = buildFoundryProjectE("testdata/cdc-foundry-project")
	if err != nil {
		log.Printf("Failed to build Foundry project: %v", err)
		return 1
	}
	defer os.RemoveAll(testCtx.FoundryProjectDir)
	log.Println("Foundry project built at:", testCtx.FoundryProjectDir)

	// Run tests
	log.Println("Running E2E tests...")
	exitCode := m.Run()

	log.Println("E2E tests completed with exit code:", exitCode)
	return exitCode
}
