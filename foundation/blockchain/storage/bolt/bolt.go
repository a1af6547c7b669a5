// Package bolt implements the ability to read and write blocks to a bbolt
// key/value file. Blocks are kept in a single bucket keyed by block number.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	bbolt "go.etcd.io/bbolt"
)

// bucketName is the bucket holding the blocks.
var bucketName = []byte("blocks")

// Bolt represents the storage implementation for reading and storing blocks
// in a bbolt database file. This implements the database.Storage interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens, or creates, the bbolt file at the specified path.
func New(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block under its number. Blocks must be written in order
// and an existing block is never replaced.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)

		var next uint64
		if last, _ := bkt.Cursor().Last(); last != nil {
			next = binary.BigEndian.Uint64(last) + 1
		}

		num := blockData.Header.Number
		if num != next {
			return fmt.Errorf("block is out of order, got %d, exp %d", num, next)
		}

		return bkt.Put(toKey(num), data)
	})
}

// GetBlock returns the block stored under the specified number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketName).Get(toKey(num))
		if val == nil {
			return fmt.Errorf("%w: %d", database.ErrBlockNotFound, num)
		}

		// The value is only valid for the life of the transaction.
		return json.Unmarshal(val, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 0.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{bolt: b}
}

// Reset removes every block from the file.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// toKey encodes the block number so keys sort in chain order.
func toKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}

// =============================================================================

// boltIterator walks the blocks in number order. This implements the
// database Iterator interface.
type boltIterator struct {
	bolt    *Bolt
	current uint64
	eoc     bool
}

// Next retrieves the next block from the file.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := bi.bolt.GetBlock(bi.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		bi.eoc = true
	}

	bi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
