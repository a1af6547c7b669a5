package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes all the transactions from the mempool and writes a
// new block to the database.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.MineNewBlock(context.Background(), "")
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrMiningInProgress):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: mining already in progress")
		case errors.Is(err, state.ErrMiningCancelled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d]: hash[%s]", block.Header.Number, block.Hash())

	// Failed or cancelled attempts wait for the next signal.
	if !w.isShutdown() && w.state.ShouldAutoMine() {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", w.state.QueryMempoolLength())
		w.SignalStartMining()
	}
}
