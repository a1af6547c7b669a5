// Package storage selects the storage implementation for the chain.
package storage

import (
	"fmt"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/memory"
)

// Set of supported storage kinds.
const (
	KindDisk   = "disk"
	KindBolt   = "bolt"
	KindMemory = "memory"
)

// Open constructs the storage of the specified kind. The path is ignored
// for memory storage.
func Open(kind string, path string) (database.Storage, error) {
	switch kind {
	case KindDisk:
		return disk.New(path)
	case KindBolt:
		return bolt.New(path)
	case KindMemory:
		return memory.New()
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}

// ReadBlocks loads every block held by the storage without validating
// them as a chain.
func ReadBlocks(strg database.Storage) ([]database.Block, error) {
	var blocks []database.Block

	iter := strg.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}
