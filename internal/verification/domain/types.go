// Package domain contains the business logic for contract source verification.
package domain

// CodeFormatStandardJSON is the explorer code format for solc standard JSON input.
const CodeFormatStandardJSON = "solidity-standard-json-input"

// VerifyRequest is the request to verify a deployed contract.
type VerifyRequest struct {
	Address         string
	Contract        string
	ConstructorArgs []any
}

// Submission is what gets sent to the block explorer.
type Submission struct {
	ChainID              int64
	Address              string
	SourceCode           string
	CodeFormat           string
	ContractName         string // "path:Name"
	CompilerVersion      string // "v0.8.20+commit.a1b2c3d4"
	ConstructorArguments string // hex, no 0x prefix
}

// Status is an explorer verification status.
type Status string

// Verification statuses.
const (
	StatusPending         Status = "pending"
	StatusPass            Status = "pass"
	StatusFail            Status = "fail"
	StatusAlreadyVerified Status = "already_verified"
)

// Terminal reports whether polling can stop.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// VerifyResult is the result of a successful verification.
type VerifyResult struct {
	GUID    string
	Status  Status
	Message string
	Polls   int
}
