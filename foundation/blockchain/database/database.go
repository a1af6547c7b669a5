// Package database handles all the lower level support for maintaining the
// blockchain: the block and transaction model, the proof of work rules and
// the append only chain backed by a storage implementation.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// Database manages the chain of blocks. The blocks are held in memory in
// chain order, the index in the slice is the block number, and every block
// is written to storage before it becomes part of the chain.
type Database struct {
	mu sync.RWMutex

	genesis      genesis.Genesis
	genesisBlock Block
	blocks       []Block
	storage      Storage
	evHandler    func(v string, args ...any)
}

// New constructs a new database with the genesis block and loads any blocks
// previously written to storage. The loaded chain is validated as a whole
// before the database is returned.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	genesisBlock, err := GenesisBlock(gen)
	if err != nil {
		return nil, err
	}

	db := Database{
		genesis:      gen,
		genesisBlock: genesisBlock,
		storage:      storage,
		evHandler:    evHandler,
	}

	// Read all the blocks from storage.
	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		db.blocks = append(db.blocks, block)
	}

	// A new chain starts with the genesis block.
	if len(db.blocks) == 0 {
		evHandler("database: New: write genesis block: blk[%s]", genesisBlock.Hash())

		if err := storage.Write(NewBlockData(genesisBlock)); err != nil {
			return nil, err
		}
		db.blocks = []Block{genesisBlock}

		return &db, nil
	}

	evHandler("database: New: validate loaded chain: blocks[%d]", len(db.blocks))

	if err := db.Validate(); err != nil {
		return nil, err
	}

	return &db, nil
}

// Close closes the storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Genesis returns the genesis information the chain was built with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// GenesisBlock returns the fixed first block.
func (db *Database) GenesisBlock() Block {
	return db.genesisBlock
}

// Append validates the block against the latest block and adds it to the
// chain. The check is performed regardless of who produced the block.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.blocks[len(db.blocks)-1]
	if err := block.ValidateBlock(latest, db.genesis.Difficulty, db.evHandler); err != nil {
		return err
	}

	db.evHandler("database: Append: write to storage: blk[%d]", block.Header.Number)

	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return fmt.Errorf("writing block %d: %w", block.Header.Number, err)
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// Validate walks the whole chain and checks every link and proof of work.
// The first violation is returned as a ChainError.
func (db *Database) Validate() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return validateChain(db.blocks, db.genesisBlock, db.genesis.Difficulty, db.evHandler)
}

// LatestBlock returns the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Blocks returns a copy of the chain in order.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)
	return blocks
}

// GetBlock returns the block with the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("%w: %d", ErrBlockNotFound, num)
	}

	return db.blocks[num], nil
}

// =============================================================================

// ValidateChain checks the blocks form a chain starting with the genesis
// block for the specified genesis. It's used to audit blocks that were never
// loaded into a database.
func ValidateChain(blocks []Block, gen genesis.Genesis) error {
	genesisBlock, err := GenesisBlock(gen)
	if err != nil {
		return err
	}

	return validateChain(blocks, genesisBlock, gen.Difficulty, nil)
}

func validateChain(blocks []Block, genesisBlock Block, difficulty uint16, evHandler func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return NewChainError(0, errors.New("chain has no genesis block"))
	}

	if got, exp := blocks[0].Hash(), genesisBlock.Hash(); got != exp {
		return NewChainError(0, fmt.Errorf("%w: genesis block doesn't match the configured genesis, got %s, exp %s", ErrInvalidLink, got, exp))
	}

	if _, root, err := newTree(blocks[0].Values()); err != nil || root != blocks[0].Header.TransRoot {
		return NewChainError(0, fmt.Errorf("%w: genesis merkle root does not match transactions", ErrInvalidProofOfWork))
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], difficulty, evHandler); err != nil {
			return NewChainError(uint64(i), err)
		}
	}

	return nil
}
