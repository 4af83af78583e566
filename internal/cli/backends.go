package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyberduckcoin/cdc-deploy/internal/chains/evm"
	"github.com/cyberduckcoin/cdc-deploy/internal/config"
	"github.com/cyberduckcoin/cdc-deploy/internal/deployments/domain"
	"github.com/cyberduckcoin/cdc-deploy/internal/explorer/etherscan"
	"github.com/cyberduckcoin/cdc-deploy/internal/middleware/logging"
	"github.com/cyberduckcoin/cdc-deploy/internal/middleware/ratelimit"
	"github.com/cyberduckcoin/cdc-deploy/internal/observability/metrics"
	verification "github.com/cyberduckcoin/cdc-deploy/internal/verification/domain"
)

// Backends are the external systems one run talks to
type Backends struct {
	Deployer domain.ContractDeployer
	Verifier domain.Verifier

	// ContractURL links to the explorer page of an address; optional
	ContractURL func(address string) string

	closers []func()
}

// Close releases backend connections
func (b *Backends) Close() {
	for _, c := range b.closers {
		c()
	}
}

// BackendFactory builds the backends for a run
type BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error)

// defaultBackends wires go-ethereum and the Etherscan client
func defaultBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	builder, err := evm.DefaultRegistry().Resolve(cfg.Project.Builder, cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving builder: %w", err)
	}
	logger.Debug("using builder", "builder", builder.Name(), "root", cfg.Project.Root)
	project := evm.NewProject(cfg.Project.Root, builder)

	client, err := evm.Dial(ctx, cfg.Network.RPCURL)
	if err != nil {
		return nil, err
	}

	deployer, err := evm.NewDeployer(ctx, client, project, evm.DeployerConfig{
		PrivateKey: cfg.Network.PrivateKey,
		ChainID:    cfg.Network.ChainID,
		GasLimit:   cfg.Network.GasLimit,
	}, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	chainID := deployer.ChainID().Int64()
	logger.Info("connected", "chain_id", chainID, "from", deployer.From().Hex())

	limiter := ratelimit.NewTransport(ratelimit.Config{
		RequestsPerSecond: cfg.Explorer.RequestsPerSecond,
		BurstSize:         1,
	}, nil)
	logger.Debug("explorer request pacing", "requests_per_second", float64(limiter.Limit()))

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: metrics.Transport(logging.Transport(logger, limiter)),
	}
	explorer := etherscan.New(cfg.Explorer.APIURL, cfg.Explorer.APIKey, chainID,
		etherscan.WithHTTPClient(httpClient),
		etherscan.WithBrowserURL(cfg.Explorer.BrowserURL),
	)

	verifier := verification.NewService(explorer, project, project, verification.Options{
		ChainID:      chainID,
		PollInterval: cfg.Explorer.PollInterval,
	}, logger)

	return &Backends{
		Deployer:    contractDeployer{deployer},
		Verifier:    verifier,
		ContractURL: explorer.ContractURL,
		closers:     []func(){client.Close},
	}, nil
}

// contractDeployer adapts *evm.Deployer to domain.ContractDeployer
type contractDeployer struct {
	*evm.Deployer
}

func (d contractDeployer) Deploy(ctx context.Context, contract string, args []any) (domain.DeployedContract, error) {
	c, err := d.Deployer.Deploy(ctx, contract, args)
	if err != nil {
		return nil, err
	}
	return c, nil
}
