package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyberduckcoin/cdc-deploy/internal/chains"
	"github.com/cyberduckcoin/cdc-deploy/internal/observability/metrics"
	"github.com/cyberduckcoin/cdc-deploy/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrInvalidAddress         = errors.New("invalid address")
	ErrInvalidCompilerVersion = errors.New("invalid compiler version")
	ErrAlreadyVerified        = errors.New("contract source code already verified")
	ErrSourceMismatch         = errors.New("source does not match deployed bytecode")
	ErrRateLimited            = errors.New("explorer rate limit reached")
	ErrContractNotIndexed     = errors.New("explorer has not indexed the contract yet")
)

// DefaultPollInterval is used when no poll interval is configured.
const DefaultPollInterval = 3 * time.Second

// Explorer is a block explorer that accepts source verification.
// Implementations return ErrAlreadyVerified, ErrRateLimited and ErrContractNotIndexed
// for those explorer answers.
type Explorer interface {
	SubmitSource(ctx context.Context, sub Submission) (guid string, err error)
	CheckStatus(ctx context.Context, guid string) (Status, string, error)
}

// SourceProvider supplies the compiler input a contract was built from.
type SourceProvider interface {
	VerificationInput(contract string) (*chains.VerificationInput, error)
}

// ArgsEncoder ABI-encodes constructor arguments for a contract.
type ArgsEncoder interface {
	EncodeConstructorArgs(contract string, args []any) (string, error)
}

// Options configures the verification service.
type Options struct {
	ChainID      int64
	PollInterval time.Duration
}

// Service verifies contract source on a block explorer.
type Service struct {
	explorer Explorer
	sources  SourceProvider
	encoder  ArgsEncoder
	opts     Options
	logger   *slog.Logger
}

// NewService creates a new verification service.
func NewService(explorer Explorer, sources SourceProvider, encoder ArgsEncoder, opts Options, logger *slog.Logger) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Service{
		explorer: explorer,
		sources:  sources,
		encoder:  encoder,
		opts:     opts,
		logger:   logger,
	}
}

// Verify submits the contract source and waits for the explorer's verdict.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	result, err := s.verify(ctx, req)
	metrics.Verification(resultLabel(err))
	return result, err
}

func (s *Service) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	// Validate address
	if err := validation.ValidateAddress(req.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	sub, err := s.buildSubmission(req)
	if err != nil {
		return nil, err
	}

	guid, err := s.explorer.SubmitSource(ctx, *sub)
	if err != nil {
		return nil, fmt.Errorf("submitting source: %w", err)
	}
	s.logger.Info("verification submitted", "guid", guid, "address", req.Address, "contract", sub.ContractName)

	return s.poll(ctx, guid)
}

func (s *Service) buildSubmission(req VerifyRequest) (*Submission, error) {
	input, err := s.sources.VerificationInput(req.Contract)
	if err != nil {
		return nil, fmt.Errorf("loading verification input: %w", err)
	}

	// Validate compiler version
	if err := validation.ValidateCompilerVersion(input.SolcLongVersion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCompilerVersion, err)
	}

	args, err := s.encoder.EncodeConstructorArgs(req.Contract, req.ConstructorArgs)
	if err != nil {
		return nil, err
	}

	return &Submission{
		ChainID:              s.opts.ChainID,
		Address:              req.Address,
		SourceCode:           string(input.StandardJSON),
		CodeFormat:           CodeFormatStandardJSON,
		ContractName:         input.FullyQualifiedName,
		CompilerVersion:      validation.NormalizeCompilerVersion(input.SolcLongVersion),
		ConstructorArguments: args,
	}, nil
}

func (s *Service) poll(ctx context.Context, guid string) (*VerifyResult, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for verification %s: %w", guid, ctx.Err())
		case <-ticker.C:
		}

		status, message, err := s.explorer.CheckStatus(ctx, guid)
		if err != nil {
			return nil, fmt.Errorf("checking verification status: %w", err)
		}
		metrics.VerificationPoll(string(status))
		s.logger.Debug("verification status", "guid", guid, "status", status, "message", message)

		switch status {
		case StatusPending:
			continue
		case StatusPass:
			return &VerifyResult{GUID: guid, Status: status, Message: message, Polls: polls}, nil
		case StatusFail:
			return nil, fmt.Errorf("%w: %s", ErrSourceMismatch, message)
		case StatusAlreadyVerified:
			return nil, fmt.Errorf("%w: %s", ErrAlreadyVerified, message)
		default:
			return nil, fmt.Errorf("unexpected verification status %q: %s", status, message)
		}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return string(StatusPass)
	case errors.Is(err, ErrAlreadyVerified):
		return string(StatusAlreadyVerified)
	case errors.Is(err, ErrSourceMismatch):
		return string(StatusFail)
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrContractNotIndexed):
		return "not_indexed"
	default:
		return "error"
	}
}
