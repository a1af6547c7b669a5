package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// MineNewBlock takes every transaction in the mempool and attempts to create
// a new block with a proper hash that can become the next block in the chain.
// The mempool is free for new submissions while the nonce is being searched
// for. If the attempt doesn't produce a block the transactions are returned
// to the front of the mempool.
func (s *State) MineNewBlock(ctx context.Context, beneficiaryID database.AccountID) (database.Block, error) {
	if beneficiaryID == "" {
		beneficiaryID = s.beneficiaryID
	}

	beneficiaryID, err := database.ToAccountID(string(beneficiaryID))
	if err != nil {
		return database.Block{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trans, prevBlock, err := s.startMining(cancel)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	t := time.Now()
	block, err := database.POW(ctx, database.POWArgs{
		BeneficiaryID: beneficiaryID,
		Difficulty:    s.genesis.Difficulty,
		MiningReward:  s.genesis.MiningReward,
		PrevBlock:     prevBlock,
		Trans:         trans,
		EvHandler:     s.evHandler,
	})

	s.evHandler("state: MineNewBlock: MINING: duration[%v]", time.Since(t))

	return s.finishMining(trans, block, err)
}

// CancelMining stops the mining attempt in progress. It reports false when
// there was nothing to cancel.
func (s *State) CancelMining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mining {
		return false
	}

	s.evHandler("state: CancelMining: MINING: CANCEL: requested")
	s.cancelMining()

	return true
}

// =============================================================================

// startMining drains the mempool and captures the tip the new block will be
// built on.
func (s *State) startMining(cancel context.CancelFunc) ([]database.Tx, database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mining {
		return nil, database.Block{}, ErrMiningInProgress
	}

	trans := s.mempool.Drain()

	s.mining = true
	s.inFlight = trans
	s.cancelMining = cancel

	return trans, s.db.LatestBlock(), nil
}

// finishMining appends the mined block to the chain or returns the drained
// transactions to the mempool.
func (s *State) finishMining(trans []database.Tx, block database.Block, powErr error) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mining = false
	s.inFlight = nil
	s.cancelMining = nil

	if powErr != nil {
		s.mempool.Restore(trans)

		if errors.Is(powErr, context.Canceled) || errors.Is(powErr, context.DeadlineExceeded) {
			s.evHandler("state: MineNewBlock: MINING: CANCEL: complete: restored[%d]", len(trans))
			return database.Block{}, fmt.Errorf("%w: %w", ErrMiningCancelled, powErr)
		}

		return database.Block{}, powErr
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.ledger.Check(block); err != nil {
		s.mempool.Restore(trans)
		return database.Block{}, err
	}

	if err := s.db.Append(block); err != nil {
		s.mempool.Restore(trans)
		return database.Block{}, err
	}

	if err := s.ledger.Apply(block); err != nil {
		s.evHandler("state: MineNewBlock: WARNING: %s", err)
	}

	// Send an event about this new block.
	s.blockEvent(block)

	return block, nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Values())
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
