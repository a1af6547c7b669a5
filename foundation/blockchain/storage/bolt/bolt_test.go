package bolt_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/bolt"
	"github.com/stretchr/testify/require"
)

func blockData(num uint64) database.BlockData {
	return database.BlockData{
		Hash:   "0x01",
		Header: database.BlockHeader{Number: num},
		Trans:  []database.Tx{{ID: "tx", FromID: "alice", ToID: "bob", Value: 1}},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")

	strg, err := bolt.New(path)
	require.NoError(t, err)

	require.NoError(t, strg.Write(blockData(0)))
	require.NoError(t, strg.Write(blockData(1)))
	require.Error(t, strg.Write(blockData(1)), "should not replace a block")
	require.Error(t, strg.Write(blockData(5)), "should not write out of order")

	got, err := strg.GetBlock(1)
	require.NoError(t, err)
	require.Equal(t, blockData(1), got)

	_, err = strg.GetBlock(2)
	require.ErrorIs(t, err, database.ErrBlockNotFound)

	require.NoError(t, strg.Close())

	// The blocks survive reopening the file.
	strg, err = bolt.New(path)
	require.NoError(t, err)
	defer strg.Close()

	var nums []uint64
	iter := strg.ForEach()
	for bd, err := iter.Next(); !iter.Done(); bd, err = iter.Next() {
		require.NoError(t, err)
		nums = append(nums, bd.Header.Number)
	}
	require.Equal(t, []uint64{0, 1}, nums)

	require.NoError(t, strg.Reset())
	_, err = strg.GetBlock(0)
	require.ErrorIs(t, err, database.ErrBlockNotFound)
	require.NoError(t, strg.Write(blockData(0)))
}
