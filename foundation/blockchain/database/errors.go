package database

import (
	"errors"
	"fmt"
)

// Set of error variables for the transaction and chain rules.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidLink        = errors.New("invalid link")
	ErrInvalidProofOfWork = errors.New("invalid proof of work")
	ErrInvalidReward      = errors.New("invalid mining reward")
	ErrBalanceOverflow    = errors.New("balance overflow")
	ErrCorruptChain       = errors.New("corrupt chain")
	ErrBlockNotFound      = errors.New("block not found")
)

// =============================================================================

// ChainError identifies the block where a chain rule was violated.
type ChainError struct {
	Index uint64
	Err   error
}

// NewChainError wraps the error with the index of the offending block.
func NewChainError(index uint64, err error) error {
	return &ChainError{Index: index, Err: err}
}

// Error implements the error interface.
func (ce *ChainError) Error() string {
	return fmt.Sprintf("%s: block[%d]: %s", ErrCorruptChain, ce.Index, ce.Err)
}

// Unwrap provides access to the rule that was violated.
func (ce *ChainError) Unwrap() error {
	return ce.Err
}

// Is makes every ChainError match ErrCorruptChain.
func (ce *ChainError) Is(target error) bool {
	return target == ErrCorruptChain
}

// GetChainError returns the ChainError in the chain of errors if one exists.
func GetChainError(err error) *ChainError {
	var ce *ChainError
	if !errors.As(err, &ce) {
		return nil
	}
	return ce
}
