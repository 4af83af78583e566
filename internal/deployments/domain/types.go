// Package domain contains the deployment procedure: deploy, report, verify.
package domain

import (
	"fmt"

	"github.com/cyberduckcoin/cdc-deploy/internal/validation"
)

// DeploymentRequest names the contract to deploy and its token constructor arguments.
type DeploymentRequest struct {
	Contract string
	Name     string
	Symbol   string
}

// CyberDuckCoinRequest returns the request this tool exists to run.
func CyberDuckCoinRequest() DeploymentRequest {
	return DeploymentRequest{
		Contract: "CyberDuckCoin",
		Name:     "CyberDuckCoin",
		Symbol:   "CDC",
	}
}

// ConstructorArgs returns the constructor arguments in declaration order.
func (r DeploymentRequest) ConstructorArgs() []any {
	return []any{r.Name, r.Symbol}
}

// Validate checks the request before anything is sent to the network.
func (r DeploymentRequest) Validate() error {
	if err := validation.ValidateContractName(r.Contract); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := validation.ValidateConstructorArgs(r.ConstructorArgs()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Deployment is the outcome of a successful run.
type Deployment struct {
	Contract         string
	Address          string
	TxHash           string
	ConstructorArgs  []any
	VerificationGUID string
	AlreadyVerified  bool
}
