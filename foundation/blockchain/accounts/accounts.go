// Package accounts derives account balances from the blockchain. Balances
// are never stored, they are the result of replaying every transaction from
// the genesis block forward.
package accounts

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// Chain represents the behavior required from the blockchain to derive
// balances.
type Chain interface {
	Validate() error
	Blocks() []database.Block
}

// Balances represents a snapshot of the balance for every account that has
// ever received coins.
type Balances map[database.AccountID]uint64

// Copy returns a copy of the balances.
func (b Balances) Copy() Balances {
	bals := make(Balances, len(b))
	for accountID, value := range b {
		bals[accountID] = value
	}
	return bals
}

// List returns the balances ordered by account.
func (b Balances) List() []database.Account {
	list := make([]database.Account, 0, len(b))
	for accountID, value := range b {
		list = append(list, database.Account{AccountID: accountID, Balance: value})
	}
	sort.Sort(database.ByAccount(list))
	return list
}

// =============================================================================

// Replay applies every transaction of the blocks in order starting from
// empty balances. A transfer that spends more than the sender holds at that
// point in history is reported as a chain error for the block.
func Replay(blocks []database.Block) (Balances, error) {
	bals := make(Balances)
	for i, block := range blocks {
		if err := applyBlock(bals, block); err != nil {
			return nil, database.NewChainError(uint64(i), err)
		}
	}

	return bals, nil
}

// applyBlock updates the balances with the transactions in the block. The
// coins in circulation must fit in a uint64 so no balance can wrap. On error
// the balances are left partially updated.
func applyBlock(bals Balances, block database.Block) error {
	supply, err := bals.supply()
	if err != nil {
		return err
	}

	for _, tx := range block.Values() {
		if tx.IsMinted() {
			if tx.Value > math.MaxUint64-supply {
				return fmt.Errorf("%w: tx[%s]: minting %d on top of %d in circulation", database.ErrBalanceOverflow, tx.ID, tx.Value, supply)
			}
			supply += tx.Value
		} else {
			from := bals[tx.FromID]
			if tx.Value > from {
				return fmt.Errorf("%w: tx[%s]: %s has %d, spends %d", database.ErrInsufficientFunds, tx.ID, tx.FromID, from, tx.Value)
			}
			bals[tx.FromID] = from - tx.Value
		}

		to := bals[tx.ToID]
		if tx.Value > math.MaxUint64-to {
			return fmt.Errorf("%w: tx[%s]: %s has %d, receives %d", database.ErrBalanceOverflow, tx.ID, tx.ToID, to, tx.Value)
		}
		bals[tx.ToID] = to + tx.Value
	}

	return nil
}

// supply returns the coins in circulation.
func (b Balances) supply() (uint64, error) {
	var total uint64
	for accountID, value := range b {
		if value > math.MaxUint64-total {
			return 0, fmt.Errorf("%w: adding %s", database.ErrBalanceOverflow, accountID)
		}
		total += value
	}
	return total, nil
}

// =============================================================================

// Ledger maintains a cached balance snapshot for the chain. The snapshot is
// tied to the height and tip of the chain it was derived from and is rebuilt
// whenever the chain moves in a way the ledger didn't see.
type Ledger struct {
	chain Chain

	mu     sync.Mutex
	bals   Balances
	height int
	tip    string
}

// New constructs a ledger for the specified chain.
func New(chain Chain) *Ledger {
	return &Ledger{
		chain: chain,
	}
}

// Balances validates the chain and returns the balances derived from it. A
// chain that fails validation never produces balances.
func (l *Ledger) Balances() (Balances, error) {
	if err := l.chain.Validate(); err != nil {
		l.mu.Lock()
		l.reset()
		l.mu.Unlock()

		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bals, err := l.snapshot()
	if err != nil {
		return nil, err
	}

	return bals.Copy(), nil
}

// BalanceOf returns the balance for the specified account. An account that
// never received coins has a balance of zero.
func (l *Ledger) BalanceOf(accountID database.AccountID) (uint64, error) {
	bals, err := l.Balances()
	if err != nil {
		return 0, err
	}

	return bals[accountID], nil
}

// CanAfford checks the account can spend the amount on top of the coins it
// has already committed to transactions that are not on the chain yet. The
// cached snapshot is used without revalidating the chain.
func (l *Ledger) CanAfford(accountID database.AccountID, amount uint64, committed uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bals, err := l.snapshot()
	if err != nil {
		return err
	}

	balance := bals[accountID]
	if committed > balance || amount > balance-committed {
		return fmt.Errorf("%w: %s has %d, %d pending, spends %d", database.ErrInsufficientFunds, accountID, balance, committed, amount)
	}

	return nil
}

// Check verifies the block can extend the chain without breaking the
// balances. Nothing is changed.
func (l *Ledger) Check(block database.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bals, err := l.snapshot()
	if err != nil {
		return err
	}

	if err := applyBlock(bals.Copy(), block); err != nil {
		return fmt.Errorf("block[%d]: %w", block.Header.Number, err)
	}

	return nil
}

// Apply extends the cached snapshot with a block just appended to the chain.
// When the block doesn't follow the snapshot the cache is dropped and the
// next read replays the chain.
func (l *Ledger) Apply(block database.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bals == nil || uint64(l.height) != block.Header.Number || l.tip != block.Header.PrevBlockHash {
		l.reset()
		return nil
	}

	bals := l.bals.Copy()
	if err := applyBlock(bals, block); err != nil {
		l.reset()
		return database.NewChainError(block.Header.Number, err)
	}

	l.bals = bals
	l.height++
	l.tip = block.Hash()

	return nil
}

// snapshot returns the cached balances, replaying the chain when the cache
// doesn't match the chain's height and tip.
func (l *Ledger) snapshot() (Balances, error) {
	blocks := l.chain.Blocks()

	if l.bals != nil && l.height == len(blocks) && len(blocks) > 0 && l.tip == blocks[len(blocks)-1].Hash() {
		return l.bals, nil
	}

	bals, err := Replay(blocks)
	if err != nil {
		l.reset()
		return nil, err
	}

	l.bals = bals
	l.height = len(blocks)
	if len(blocks) > 0 {
		l.tip = blocks[len(blocks)-1].Hash()
	}

	return bals, nil
}

// reset drops the cached snapshot.
func (l *Ledger) reset() {
	l.bals = nil
	l.height = 0
	l.tip = ""
}
