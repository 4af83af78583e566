// Package cli implements the cdc-deploy command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cyberduckcoin/cdc-deploy/internal/config"
	"github.com/cyberduckcoin/cdc-deploy/internal/deployments/domain"
	"github.com/cyberduckcoin/cdc-deploy/internal/observability/metrics"
)

// Option configures the root command
type Option func(*options)

type options struct {
	backends BackendFactory
}

// WithBackendFactory replaces the chain and explorer backends
func WithBackendFactory(f BackendFactory) Option {
	return func(o *options) {
		o.backends = f
	}
}

// NewRootCmd creates the cdc-deploy command
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	o := &options{backends: defaultBackends}
	for _, opt := range opts {
		opt(o)
	}

	rootCmd := &cobra.Command{
		Use:   "cdc-deploy",
		Short: "Deploy and verify the CyberDuckCoin token",
		Long: `cdc-deploy deploys the CyberDuckCoin contract with constructor arguments
("CyberDuckCoin", "CDC"), prints its address and verifies the source on an
Etherscan-compatible block explorer.

Settings come from the environment (RPC_URL, PRIVATE_KEY, ETHERSCAN_API_KEY, ...)
and an optional cdc.toml or cdc.yaml in the working directory.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), version, o.backends)
		},
	}

	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

func runDeploy(ctx context.Context, stdout, stderr io.Writer, version string, newBackends BackendFactory) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.NewString()
	logger := setupLogger(cfg.Logging, stderr).With("run_id", runID)
	logger.Info("starting cdc-deploy", "version", version, "config", cfg.Source)
	ctx = context.WithValue(ctx, middleware.RequestIDKey, runID)

	metrics.Init(cfg.Metrics.Textfile != "", "cdc-deploy")
	defer func() {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("writing metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}()

	backends, err := newBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	deployer := domain.NewDeployer(backends.Deployer, backends.Verifier, stdout, domain.Options{
		TolerateAlreadyVerified: cfg.Explorer.TolerateAlreadyVerified,
	}, logger)

	result, err := deployer.Run(ctx, domain.CyberDuckCoinRequest())
	if err != nil {
		logger.Error("run failed", "error", err)
		return err
	}

	attrs := []any{"address", result.Address, "tx", result.TxHash}
	if backends.ContractURL != nil {
		if u := backends.ContractURL(result.Address); u != "" {
			attrs = append(attrs, "url", u)
		}
	}
	logger.Info("run complete", attrs...)
	return nil
}
