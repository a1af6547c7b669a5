package public

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// newTx is the payload for submitting a transfer. The value is kept as the
// number sent and checked by amount.
type newTx struct {
	From  string      `json:"from" validate:"required"`
	To    string      `json:"to" validate:"required"`
	Value json.Number `json:"value"`
}

// amount converts the value to whole coins. A missing value is zero and is
// left to the transfer rules.
func (nt newTx) amount() (uint64, error) {
	if nt.Value == "" {
		return 0, nil
	}

	value, err := strconv.ParseUint(nt.Value.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value must be a whole number of coins greater than zero, got %s", database.ErrInvalidAmount, nt.Value)
	}

	return value, nil
}

// mineRequest is the optional payload for starting a mining attempt.
type mineRequest struct {
	Beneficiary string `json:"beneficiary"`
}

type tx struct {
	ID        string             `json:"id"`
	FromID    database.AccountID `json:"from"`
	ToID      database.AccountID `json:"to"`
	Value     uint64             `json:"value"`
	Kind      database.TxKind    `json:"kind"`
	TimeStamp uint64             `json:"timestamp"`
}

func toTx(dbTx database.Tx) tx {
	return tx{
		ID:        dbTx.ID,
		FromID:    dbTx.FromID,
		ToID:      dbTx.ToID,
		Value:     dbTx.Value,
		Kind:      dbTx.Kind,
		TimeStamp: dbTx.TimeStamp,
	}
}

func toTxs(dbTxs []database.Tx) []tx {
	trans := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		trans[i] = toTx(dbTx)
	}
	return trans
}

type block struct {
	Number        uint64             `json:"number"`
	Hash          string             `json:"hash"`
	PrevBlockHash string             `json:"prev_block_hash"`
	TimeStamp     uint64             `json:"timestamp"`
	Nonce         uint64             `json:"nonce"`
	BeneficiaryID database.AccountID `json:"beneficiary"`
	Difficulty    uint16             `json:"difficulty"`
	MiningReward  uint64             `json:"mining_reward"`
	TransRoot     string             `json:"trans_root"`
	Transactions  []tx               `json:"txs"`
}

func toBlock(blk database.Block) block {
	return block{
		Number:        blk.Header.Number,
		Hash:          blk.Hash(),
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Nonce:         blk.Header.Nonce,
		BeneficiaryID: blk.Header.BeneficiaryID,
		Difficulty:    blk.Header.Difficulty,
		MiningReward:  blk.Header.MiningReward,
		TransRoot:     blk.Header.TransRoot,
		Transactions:  toTxs(blk.Values()),
	}
}

func toBlocks(dbBlocks []database.Block) []block {
	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(blk)
	}
	return blocks
}

type balance struct {
	Account database.AccountID `json:"account"`
	Balance uint64             `json:"balance"`
}

type actInfo struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []balance `json:"accounts"`
}

type validation struct {
	Valid     bool    `json:"valid"`
	Length    int     `json:"length"`
	Violation string  `json:"violation,omitempty"`
	Index     *uint64 `json:"index,omitempty"`
}
