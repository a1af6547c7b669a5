package state

import (
	"math"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// Stats represents the statistics for the chain and the mempool.
type Stats struct {
	TotalBlocks    int    `json:"total_blocks"`
	TotalTrans     int    `json:"total_trans"`
	TransferTrans  int    `json:"transfer_trans"`
	RewardTrans    int    `json:"reward_trans"`
	GenesisTrans   int    `json:"genesis_trans"`
	PendingTrans   int    `json:"pending_trans"`
	CoinsMinted    uint64 `json:"coins_minted"`
	Difficulty     uint16 `json:"difficulty"`
	MiningReward   uint64 `json:"mining_reward"`
	GenesisHash    string `json:"genesis_hash"`
	LatestHash     string `json:"latest_hash"`
	LatestBlockNum uint64 `json:"latest_block_num"`
	Mining         bool   `json:"mining"`
	Valid          bool   `json:"valid"`
	Violation      string `json:"violation,omitempty"`
}

// QueryStats walks the chain and reports the statistics for it. The chain is
// validated as part of the call.
func (s *State) QueryStats() Stats {
	blocks := s.db.Blocks()
	latest := blocks[len(blocks)-1]

	stats := Stats{
		TotalBlocks:    len(blocks),
		PendingTrans:   s.mempool.Count(),
		Difficulty:     s.genesis.Difficulty,
		MiningReward:   s.genesis.MiningReward,
		GenesisHash:    blocks[0].Hash(),
		LatestHash:     latest.Hash(),
		LatestBlockNum: latest.Header.Number,
		Mining:         s.IsMining(),
		Valid:          true,
	}

	for _, block := range blocks {
		for _, tx := range block.Values() {
			stats.TotalTrans++

			switch tx.Kind {
			case database.TxKindTransfer:
				stats.TransferTrans++
			case database.TxKindReward:
				stats.RewardTrans++
			case database.TxKindGenesis:
				stats.GenesisTrans++
			}

			if tx.IsMinted() {
				stats.CoinsMinted = addCapped(stats.CoinsMinted, tx.Value)
			}
		}
	}

	if err := s.ValidateChain(); err != nil {
		stats.Valid = false
		stats.Violation = err.Error()
	}

	return stats
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBalance returns the balance for the specified account. The chain is
// validated before the balance is derived.
func (s *State) QueryBalance(accountID database.AccountID) (database.Account, error) {
	balance, err := s.ledger.BalanceOf(accountID)
	if err != nil {
		return database.Account{}, err
	}

	return database.Account{AccountID: accountID, Balance: balance}, nil
}

// QueryChain returns the summary of every block in the chain in order.
func (s *State) QueryChain() []database.BlockSummary {
	blocks := s.db.Blocks()

	out := make([]database.BlockSummary, len(blocks))
	for i, block := range blocks {
		out[i] = block.Summary()
	}

	return out
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. A
// range past the latest block is cut at the latest block.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Header.Number

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryBlocksByAccount returns the set of blocks by account. If the account
// is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) []database.Block {
	blocks := s.db.Blocks()
	if accountID == "" {
		return blocks
	}

	var out []database.Block
	for _, block := range blocks {
		for _, tx := range block.Values() {
			if tx.FromID == accountID || tx.ToID == accountID {
				out = append(out, block)
				break
			}
		}
	}

	return out
}

// ValidateChain audits the whole chain, every link, proof of work and
// transaction, and reports the first violation found.
func (s *State) ValidateChain() error {
	_, err := s.ledger.Balances()
	return err
}

// addCapped adds the values, stopping at the largest uint64 instead of
// wrapping.
func addCapped(a uint64, b uint64) uint64 {
	if b > math.MaxUint64-a {
		return math.MaxUint64
	}
	return a + b
}
