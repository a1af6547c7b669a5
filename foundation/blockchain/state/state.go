// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"sync"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/accounts"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/mempool"
)

// Set of errors returned by the mining operation.
var (
	ErrMiningInProgress = errors.New("mining already in progress")
	ErrMiningCancelled  = errors.New("mining cancelled")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining in the background.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID     database.AccountID
	Genesis           genesis.Genesis
	Storage           database.Storage
	AutoMineThreshold int
	EvHandler         EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	beneficiaryID     database.AccountID
	autoMineThreshold int
	evHandler         EventHandler

	genesis genesis.Genesis
	mempool *mempool.Mempool
	db      *database.Database
	ledger  *accounts.Ledger

	mining       bool
	inFlight     []database.Tx
	cancelMining context.CancelFunc

	Worker Worker
}

// New constructs a new blockchain for data management. Any chain already in
// storage is validated before the state is returned.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	beneficiaryID, err := database.ToAccountID(string(cfg.BeneficiaryID))
	if err != nil {
		return nil, err
	}

	// Access the storage for the blockchain. The chain is loaded and
	// validated, a new chain starts with the genesis block.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Make sure the history never overdraws an account before the chain
	// is used.
	ledger := accounts.New(db)
	if _, err := ledger.Balances(); err != nil {
		db.Close()
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		beneficiaryID:     beneficiaryID,
		autoMineThreshold: cfg.AutoMineThreshold,
		evHandler:         ev,

		genesis: cfg.Genesis,
		mempool: mempool.New(),
		db:      db,
		ledger:  ledger,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}
	s.CancelMining()

	// Make sure the database file is properly closed.
	return s.db.Close()
}

// IsMining reports if a mining attempt is in progress.
func (s *State) IsMining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mining
}
