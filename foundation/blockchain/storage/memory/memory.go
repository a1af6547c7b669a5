// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface. Nothing survives a restart of the process.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified database block and stores it in memory.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uint64(len(m.blocks)) != blockData.Header.Number {
		return fmt.Errorf("block is out of order, got %d, exp %d", blockData.Header.Number, len(m.blocks))
	}

	m.blocks = append(m.blocks, copyBlockData(blockData))

	return nil
}

// GetBlock searches the blockchain to locate and return the contents of
// the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num >= uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("%w: %d", database.ErrBlockNotFound, num)
	}

	return copyBlockData(m.blocks[num]), nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 0.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{storage: m}
}

// Reset will clear out the blockchain.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// copyBlockData makes sure the caller and the storage never share the
// transactions backing array.
func copyBlockData(blockData database.BlockData) database.BlockData {
	trans := make([]database.Tx, len(blockData.Trans))
	copy(trans, blockData.Trans)
	blockData.Trans = trans

	return blockData
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through the blocks in memory. This implements the database Iterator
// interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	current uint64  // Current block number being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := mi.storage.GetBlock(mi.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		mi.eoc = true
	}

	mi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
