// Package evm deploys contracts to Ethereum and compatible chains.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cyberduckcoin/cdc-deploy/internal/middleware/logging"
	"github.com/cyberduckcoin/cdc-deploy/internal/validation"
)

// ErrEmptyBytecode is returned when an artifact has no creation code (abstract contract or interface)
var ErrEmptyBytecode = errors.New("artifact has no creation bytecode")

// Backend is the node access the deployer needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to a JSON-RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", logging.RedactEndpoint(rpcURL), err)
	}
	return client, nil
}

// DeployerConfig holds signing and gas settings
type DeployerConfig struct {
	PrivateKey string
	ChainID    int64  // 0 asks the node
	GasLimit   uint64 // 0 estimates
}

// Deployer sends contract creation transactions signed by a single key
type Deployer struct {
	backend  Backend
	project  *Project
	auth     *bind.TransactOpts
	chainID  *big.Int
	gasLimit uint64
	logger   *slog.Logger
}

// NewDeployer creates a deployer for the given backend and project
func NewDeployer(ctx context.Context, backend Backend, project *Project, cfg DeployerConfig, logger *slog.Logger) (*Deployer, error) {
	key, err := parseKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying chain ID: %w", err)
		}
	}
	if err := validation.ValidateChainID(chainID.Int64()); err != nil {
		return nil, fmt.Errorf("chain ID %s: %w", chainID, err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}

	return &Deployer{
		backend:  backend,
		project:  project,
		auth:     auth,
		chainID:  chainID,
		gasLimit: cfg.GasLimit,
		logger:   logger,
	}, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// From returns the deploying account
func (d *Deployer) From() common.Address {
	return d.auth.From
}

// ChainID returns the chain ID transactions are signed for
func (d *Deployer) ChainID() *big.Int {
	return new(big.Int).Set(d.chainID)
}

// Deploy sends the creation transaction for contract with the given constructor
// arguments. It returns as soon as the transaction is accepted by the node.
func (d *Deployer) Deploy(ctx context.Context, contract string, args []any) (*DeployedContract, error) {
	artifact, err := d.project.Artifact(contract)
	if err != nil {
		return nil, err
	}

	parsed, err := d.project.ABI(contract)
	if err != nil {
		return nil, err
	}

	bytecode := common.FromHex(artifact.Bytecode)
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%s: %w", contract, ErrEmptyBytecode)
	}

	opts := *d.auth
	opts.Context = ctx
	opts.GasLimit = d.gasLimit

	address, tx, _, err := bind.DeployContract(&opts, parsed, bytecode, d.backend, args...)
	if err != nil {
		return nil, fmt.Errorf("sending deployment of %s: %w", contract, err)
	}

	d.logger.Info("deployment transaction sent",
		"contract", contract,
		"tx", tx.Hash().Hex(),
		"from", d.auth.From.Hex(),
		"chain_id", d.chainID.String(),
	)

	return &DeployedContract{
		backend:  d.backend,
		tx:       tx,
		address:  address,
		expected: common.FromHex(artifact.DeployedBytecode),
		logger:   d.logger.With("contract", contract),
	}, nil
}

// DeployedContract is a handle to a contract creation transaction
type DeployedContract struct {
	backend  Backend
	tx       *types.Transaction
	address  common.Address
	expected []byte
	logger   *slog.Logger
}

// TxHash returns the creation transaction hash
func (c *DeployedContract) TxHash() string {
	return c.tx.Hash().Hex()
}

// WaitForDeployment blocks until the creation transaction is mined and code
// exists at the contract address. It waits as long as ctx allows.
func (c *DeployedContract) WaitForDeployment(ctx context.Context) error {
	address, err := bind.WaitDeployed(ctx, c.backend, c.tx)
	if err != nil {
		return fmt.Errorf("waiting for transaction %s: %w", c.tx.Hash().Hex(), err)
	}
	c.address = address

	c.checkCode(ctx)
	return nil
}

// checkCode compares the runtime code with the artifact. A mismatch is only logged.
func (c *DeployedContract) checkCode(ctx context.Context) {
	if len(c.expected) == 0 {
		return
	}

	code, err := c.backend.CodeAt(ctx, c.address, nil)
	if err != nil {
		c.logger.Warn("could not fetch runtime code", "address", c.address.Hex(), "error", err)
		return
	}

	result := CompareBytecode(code, c.expected)
	if result.Match {
		c.logger.Debug("runtime code matches artifact", "match", result.MatchType)
		return
	}
	c.logger.Warn("runtime code differs from artifact", "address", c.address.Hex(), "detail", result.Message)
}

// Address returns the checksummed contract address
func (c *DeployedContract) Address(_ context.Context) (string, error) {
	if c.address == (common.Address{}) {
		return "", errors.New("contract address unknown")
	}
	return c.address.Hex(), nil
}
