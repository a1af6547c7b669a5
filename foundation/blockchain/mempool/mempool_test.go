package mempool_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newTx(t *testing.T, from, to database.AccountID, value uint64) database.Tx {
	t.Helper()

	tx, err := database.NewTx(from, to, value)
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %v", err)
	}
	return tx
}

func ids(trans []database.Tx) []string {
	ids := make([]string, len(trans))
	for i, tx := range trans {
		ids[i] = tx.ID
	}
	return ids
}

func equal(a, b []database.Tx) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// =============================================================================

func TestCRUD(t *testing.T) {
	t.Log("Given the need to validate mempool api.")
	{
		mp := mempool.New()

		tx1 := newTx(t, "alice", "bob", 10)
		tx2 := newTx(t, "bob", "carol", 5)
		tx3 := newTx(t, "alice", "carol", 7)

		for i, tx := range []database.Tx{tx1, tx2, tx3} {
			n, err := mp.Upsert(tx)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to add transaction %d: %v", failed, i, err)
			}
			if n != i+1 {
				t.Fatalf("\t%s\tShould get back the pool size, got %d, exp %d", failed, n, i+1)
			}
		}
		t.Logf("\t%s\tShould be able to add transactions.", success)

		if _, err := mp.Upsert(tx1); !errors.Is(err, mempool.ErrDuplicateTx) {
			t.Fatalf("\t%s\tShould reject a duplicate transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a duplicate transaction.", success)

		if got := mp.Copy(); !equal(got, []database.Tx{tx1, tx2, tx3}) {
			t.Fatalf("\t%s\tShould keep submission order: %v", failed, ids(got))
		}
		t.Logf("\t%s\tShould keep submission order.", success)

		if got := mp.Outflow("alice"); got != 17 {
			t.Fatalf("\t%s\tShould get the pending outflow, got %d, exp 17", failed, got)
		}
		if got := mp.Outflow("carol"); got != 0 {
			t.Fatalf("\t%s\tShould not count incoming coins, got %d", failed, got)
		}
		t.Logf("\t%s\tShould get the pending outflow.", success)

		mp.Truncate()
		if mp.Count() != 0 {
			t.Fatalf("\t%s\tShould be empty after truncate.", failed)
		}
		t.Logf("\t%s\tShould be empty after truncate.", success)
	}
}

func TestDrainRestore(t *testing.T) {
	t.Log("Given the need to take the pool for mining and give it back.")
	{
		mp := mempool.New()

		tx1 := newTx(t, "alice", "bob", 10)
		tx2 := newTx(t, "bob", "carol", 5)
		mp.Upsert(tx1)
		mp.Upsert(tx2)

		drained := mp.Drain()
		if !equal(drained, []database.Tx{tx1, tx2}) || mp.Count() != 0 {
			t.Fatalf("\t%s\tShould drain everything in order: %v", failed, ids(drained))
		}
		t.Logf("\t%s\tShould drain everything in order.", success)

		// A transaction submitted while mining was in progress.
		tx3 := newTx(t, "carol", "alice", 1)
		mp.Upsert(tx3)

		mp.Restore(drained)
		if got := mp.Copy(); !equal(got, []database.Tx{tx1, tx2, tx3}) {
			t.Fatalf("\t%s\tShould restore ahead of newer transactions: %v", failed, ids(got))
		}
		t.Logf("\t%s\tShould restore ahead of newer transactions.", success)

		mp.Restore(drained)
		if mp.Count() != 3 {
			t.Fatalf("\t%s\tShould not restore a transaction twice.", failed)
		}
		t.Logf("\t%s\tShould not restore a transaction twice.", success)

		if _, err := mp.Upsert(tx1); !errors.Is(err, mempool.ErrDuplicateTx) {
			t.Fatalf("\t%s\tShould know restored transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould know restored transactions.", success)
	}
}
