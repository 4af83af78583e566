package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyberduckcoin/cdc-deploy/internal/observability/metrics"
	verification "github.com/cyberduckcoin/cdc-deploy/internal/verification/domain"
)

// Common errors returned by the deployer.
var (
	ErrInvalidRequest     = errors.New("invalid deployment request")
	ErrDeploymentFailed   = errors.New("deployment failed")
	ErrVerificationFailed = errors.New("verification failed")
)

// ContractDeployer sends contract creation transactions.
type ContractDeployer interface {
	Deploy(ctx context.Context, contract string, args []any) (DeployedContract, error)
}

// DeployedContract is a handle to a contract creation in flight.
type DeployedContract interface {
	WaitForDeployment(ctx context.Context) error
	Address(ctx context.Context) (string, error)
	TxHash() string
}

// Verifier submits source verification for a deployed contract.
type Verifier interface {
	Verify(ctx context.Context, req verification.VerifyRequest) (*verification.VerifyResult, error)
}

// Options configures the deployer.
type Options struct {
	// TolerateAlreadyVerified treats an already verified contract as success
	TolerateAlreadyVerified bool
}

// Deployer runs one deployment followed by one verification.
type Deployer struct {
	contracts ContractDeployer
	verifier  Verifier
	out       io.Writer
	opts      Options
	logger    *slog.Logger
}

// NewDeployer creates a deployer that reports progress to out.
func NewDeployer(contracts ContractDeployer, verifier Verifier, out io.Writer, opts Options, logger *slog.Logger) *Deployer {
	return &Deployer{
		contracts: contracts,
		verifier:  verifier,
		out:       out,
		opts:      opts,
		logger:    logger,
	}
}

// Run deploys req.Contract, prints its address, then verifies it with the same
// constructor arguments. Nothing is retried and verification is only attempted
// after the deployment is mined.
func (d *Deployer) Run(ctx context.Context, req DeploymentRequest) (*Deployment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	args := req.ConstructorArgs()

	result, err := d.deploy(ctx, req.Contract, args)
	if err != nil {
		metrics.Deployment(req.Contract, "deploy_failed")
		return nil, fmt.Errorf("%w: %w", ErrDeploymentFailed, err)
	}
	fmt.Fprintf(d.out, "%s Contract Address: %s\n", req.Contract, result.Address)

	fmt.Fprintln(d.out, "Verifying contract on Etherscan...")
	if err := d.verify(ctx, result); err != nil {
		metrics.Deployment(req.Contract, "verify_failed")
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	metrics.Deployment(req.Contract, "success")
	return result, nil
}

func (d *Deployer) deploy(ctx context.Context, contract string, args []any) (*Deployment, error) {
	start := time.Now()
	defer func() { metrics.Step("deploy", time.Since(start)) }()

	handle, err := d.contracts.Deploy(ctx, contract, args)
	if err != nil {
		return nil, err
	}
	d.logger.Info("waiting for deployment", "contract", contract, "tx", handle.TxHash())

	if err := handle.WaitForDeployment(ctx); err != nil {
		return nil, err
	}

	address, err := handle.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading contract address: %w", err)
	}
	d.logger.Info("contract deployed", "contract", contract, "address", address, "duration", time.Since(start).String())

	return &Deployment{
		Contract:        contract,
		Address:         address,
		TxHash:          handle.TxHash(),
		ConstructorArgs: args,
	}, nil
}

func (d *Deployer) verify(ctx context.Context, dep *Deployment) error {
	start := time.Now()
	defer func() { metrics.Step("verify", time.Since(start)) }()

	res, err := d.verifier.Verify(ctx, verification.VerifyRequest{
		Address:         dep.Address,
		Contract:        dep.Contract,
		ConstructorArgs: dep.ConstructorArgs,
	})
	if err != nil {
		if d.opts.TolerateAlreadyVerified && errors.Is(err, verification.ErrAlreadyVerified) {
			d.logger.Warn("contract already verified", "address", dep.Address)
			fmt.Fprintln(d.out, "The contract already verified")
			dep.AlreadyVerified = true
			return nil
		}
		return err
	}

	if res != nil {
		dep.VerificationGUID = res.GUID
	}
	fmt.Fprintf(d.out, "Successfully verified contract %s on the block explorer.\n", dep.Contract)
	return nil
}
