package state

import (
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/mempool"
)

// SubmitTransaction accepts a transfer for inclusion in a future block. The
// sender must be able to cover the value on top of everything it is already
// sending in transactions that are not on the chain yet.
func (s *State) SubmitTransaction(from string, to string, value uint64) (database.Tx, error) {
	fromID, err := database.ToAccountID(from)
	if err != nil {
		return database.Tx{}, err
	}

	toID, err := database.ToAccountID(to)
	if err != nil {
		return database.Tx{}, err
	}

	tx, err := database.NewTx(fromID, toID, value)
	if err != nil {
		return database.Tx{}, err
	}

	n, err := s.upsertMempool(tx)
	if err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransaction: accepted: tx[%s]: pool[%d]", tx, n)

	if s.Worker != nil && s.ShouldAutoMine() {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// ShouldAutoMine reports if the mempool has reached the size that triggers
// mining without being asked.
func (s *State) ShouldAutoMine() bool {
	return s.autoMineThreshold > 0 && s.mempool.Count() >= s.autoMineThreshold
}

// upsertMempool checks the sender's funds and adds the transaction to the
// mempool as one step so concurrent submissions can't overdraw an account.
func (s *State) upsertMempool(tx database.Tx) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	committed := s.mempool.Outflow(tx.FromID) + mempool.Outflow(s.inFlight, tx.FromID)
	if err := s.ledger.CanAfford(tx.FromID, tx.Value, committed); err != nil {
		return 0, err
	}

	return s.mempool.Upsert(tx)
}
