package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// TxKind identifies how a transaction came to exist.
type TxKind string

// Set of transaction kinds.
const (
	TxKindTransfer = TxKind("transfer")
	TxKindReward   = TxKind("mining_reward")
	TxKindGenesis  = TxKind("genesis")
)

// genesisSpace is the namespace for the deterministic ids of the genesis
// allocation transactions.
var genesisSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("blockcraft.genesis"))

// =============================================================================

// Tx is the transactional information between two parties. A Tx is never
// changed after it is constructed.
type Tx struct {
	ID        string    `json:"id"`        // Unique id for the transaction.
	FromID    AccountID `json:"from"`      // Account sending the coins, SYSTEM for minted coins.
	ToID      AccountID `json:"to"`        // Account receiving the coins.
	Value     uint64    `json:"value"`     // Number of coins transferred.
	Kind      TxKind    `json:"kind"`      // Transfer, mining reward or genesis allocation.
	TimeStamp uint64    `json:"timestamp"` // Time the transaction was created in milliseconds.
}

// NewTx constructs a new user transfer between two accounts.
func NewTx(fromID AccountID, toID AccountID, value uint64) (Tx, error) {
	tx := Tx{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Value:     value,
		Kind:      TxKindTransfer,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// NewRewardTx constructs the transaction that pays the miner of a block.
func NewRewardTx(toID AccountID, value uint64) Tx {
	return Tx{
		ID:        uuid.NewString(),
		FromID:    SystemAccountID,
		ToID:      toID,
		Value:     value,
		Kind:      TxKindReward,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}
}

// newGenesisTx constructs an allocation for the genesis block. The id and
// timestamp are derived from the inputs so the genesis block is the same
// every time it is constructed.
func newGenesisTx(toID AccountID, value uint64, date time.Time) Tx {
	return Tx{
		ID:        uuid.NewSHA1(genesisSpace, []byte(toID)).String(),
		FromID:    SystemAccountID,
		ToID:      toID,
		Value:     value,
		Kind:      TxKindGenesis,
		TimeStamp: uint64(date.UTC().UnixMilli()),
	}
}

// Validate checks the transaction obeys the transfer rules.
func (tx Tx) Validate() error {
	if tx.Value == 0 {
		return fmt.Errorf("%w: value must be greater than zero", ErrInvalidAmount)
	}

	if !tx.ToID.IsAccountID() || tx.ToID.IsSystem() {
		return fmt.Errorf("%w: to %q", ErrInvalidAccount, tx.ToID)
	}

	switch tx.Kind {
	case TxKindReward, TxKindGenesis:
		if tx.FromID != SystemAccountID {
			return fmt.Errorf("%w: %s must come from %s, got %q", ErrInvalidAccount, tx.Kind, SystemAccountID, tx.FromID)
		}

	case TxKindTransfer:
		if !tx.FromID.IsAccountID() || tx.FromID.IsSystem() {
			return fmt.Errorf("%w: from %q", ErrInvalidAccount, tx.FromID)
		}

		if tx.FromID == tx.ToID {
			return fmt.Errorf("%w: sending money to yourself, from %s, to %s", ErrInvalidAmount, tx.FromID, tx.ToID)
		}

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAccount, tx.Kind)
	}

	return nil
}

// IsReward tests if the transaction is a mining reward.
func (tx Tx) IsReward() bool {
	return tx.Kind == TxKindReward
}

// IsMinted tests if the coins of the transaction were created by the system.
func (tx Tx) IsMinted() bool {
	return tx.Kind == TxKindReward || tx.Kind == TxKindGenesis
}

// Hash implements the merkle Hashable interface for providing a hash
// of a transaction.
func (tx Tx) Hash() ([]byte, error) {
	return signature.HashBytes(tx)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.ID == otherTx.ID
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s:%d", tx.Kind, tx.FromID, tx.ToID, tx.Value)
}
