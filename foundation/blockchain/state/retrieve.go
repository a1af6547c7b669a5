package state

import (
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveBeneficiary returns the account mining rewards are paid to by
// default.
func (s *State) RetrieveBeneficiary() database.AccountID {
	return s.beneficiaryID
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool in submission order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveBalances returns the balance for every account ordered by account.
// A chain that fails validation produces no balances.
func (s *State) RetrieveBalances() ([]database.Account, error) {
	bals, err := s.ledger.Balances()
	if err != nil {
		return nil, err
	}

	return bals.List(), nil
}
