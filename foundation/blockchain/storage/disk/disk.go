// Package disk implements the ability to read and write blocks to disk
// with every block in its own JSON file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// Disk represents the storage implementation for reading and storing blocks
// in their own separate files on disk. This implements the database.Storage
// interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified database block and stores it on disk in a
// file labeled with the block number. An existing block is never replaced.
func (d *Disk) Write(blockData database.BlockData) error {
	num := blockData.Header.Number

	// Blocks are written in order so the parent must already exist.
	if num > 0 {
		if _, err := os.Stat(d.getPath(num - 1)); err != nil {
			return fmt.Errorf("block is out of order, parent of %d: %w", num, err)
		}
	}

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockData, "", "  ")
	if err != nil {
		return err
	}

	// Create a new file for this block and name it based on the block number.
	f, err := os.OpenFile(d.getPath(num), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Write the new block to disk.
	if _, err := f.Write(data); err != nil {
		return err
	}

	return f.Sync()
}

// GetBlock searches the blockchain on disk to locate and return the
// contents of the specified block by number.
func (d *Disk) GetBlock(num uint64) (database.BlockData, error) {

	// Open the block file for the specified number.
	f, err := os.Open(d.getPath(num))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockData{}, fmt.Errorf("%w: %d", database.ErrBlockNotFound, num)
		}
		return database.BlockData{}, err
	}
	defer f.Close()

	// Decode the contents of the block.
	var blockData database.BlockData
	if err := json.NewDecoder(f).Decode(&blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decoding block %d: %w", num, err)
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 0.
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{disk: d}
}

// Reset will clear out the blockchain on disk.
func (d *Disk) Reset() error {
	files, err := filepath.Glob(filepath.Join(d.dbPath, "*.json"))
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return err
		}
	}

	return nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	disk    *Disk  // Access to the disk storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := di.disk.GetBlock(di.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		di.eoc = true
	}

	di.current++

	return blockData, err
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}
