package state_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/signature"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/state"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newGenesis(difficulty uint16) genesis.Genesis {
	return genesis.Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:      1,
		Difficulty:   difficulty,
		MiningReward: 100,
		Balances:     map[string]uint64{"alice": 50, "bob": 5},
	}
}

func newState(t *testing.T, gen genesis.Genesis, strg database.Storage) *state.State {
	t.Helper()

	if strg == nil {
		var err error
		if strg, err = memory.New(); err != nil {
			t.Fatalf("Should be able to construct storage: %v", err)
		}
	}

	st, err := state.New(state.Config{
		BeneficiaryID: "miner",
		Genesis:       gen,
		Storage:       strg,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	return st
}

func balances(t *testing.T, st *state.State) map[database.AccountID]uint64 {
	t.Helper()

	accounts, err := st.RetrieveBalances()
	if err != nil {
		t.Fatalf("Should be able to retrieve balances: %v", err)
	}

	bals := make(map[database.AccountID]uint64)
	for _, account := range accounts {
		bals[account.AccountID] = account.Balance
	}
	return bals
}

func pendingIDs(st *state.State) []string {
	var ids []string
	for _, tx := range st.RetrieveMempool() {
		ids = append(ids, tx.ID)
	}
	return ids
}

// mineInBackground starts a mining attempt that won't finish on its own and
// waits for it to be in progress.
func mineInBackground(t *testing.T, st *state.State) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		_, err := st.MineNewBlock(context.Background(), "")
		errCh <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !st.IsMining() {
		if time.Now().After(deadline) {
			t.Fatalf("Should see mining in progress.")
		}
		time.Sleep(time.Millisecond)
	}

	return errCh
}

// =============================================================================

func Test_SubmitTransaction(t *testing.T) {
	t.Log("Given the need to accept transactions into the pool.")
	{
		st := newState(t, newGenesis(1), nil)

		tx, err := st.SubmitTransaction("alice", "bob", 10)
		if err != nil {
			t.Fatalf("\t%s\tShould accept the transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept the transaction.", success)

		if pending := st.RetrieveMempool(); len(pending) != 1 || !pending[0].Equals(tx) {
			t.Fatalf("\t%s\tShould have the transaction pending: %v", failed, pending)
		}
		t.Logf("\t%s\tShould have the transaction pending.", success)

		if bals := balances(t, st); bals["alice"] != 50 || bals["bob"] != 5 {
			t.Fatalf("\t%s\tShould not change balances before mining: %v", failed, bals)
		}
		t.Logf("\t%s\tShould not change balances before mining.", success)

		if _, err := st.SubmitTransaction("alice", "bob", 100); !errors.Is(err, database.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould reject spending more than the balance: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject spending more than the balance.", success)

		if _, err := st.SubmitTransaction("alice", "bob", 41); !errors.Is(err, database.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould count pending transactions against the balance: %v", failed, err)
		}
		t.Logf("\t%s\tShould count pending transactions against the balance.", success)

		if _, err := st.SubmitTransaction("alice", "bob", 0); !errors.Is(err, database.ErrInvalidAmount) {
			t.Fatalf("\t%s\tShould reject a zero amount: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a zero amount.", success)

		if _, err := st.SubmitTransaction(" ", "bob", 1); !errors.Is(err, database.ErrInvalidAccount) {
			t.Fatalf("\t%s\tShould reject an empty account: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an empty account.", success)

		if _, err := st.SubmitTransaction("carol", "bob", 1); !errors.Is(err, database.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould reject an account that never received coins: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject an account that never received coins.", success)

		if st.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould leave the pool unchanged after rejections.", failed)
		}
		t.Logf("\t%s\tShould leave the pool unchanged after rejections.", success)
	}
}

func Test_MineNewBlock(t *testing.T) {
	t.Log("Given the need to mine the pool with a difficulty of 4.")
	{
		st := newState(t, newGenesis(4), nil)

		tx1, err := st.SubmitTransaction("alice", "bob", 10)
		if err != nil {
			t.Fatalf("\t%s\tShould accept the first transaction: %v", failed, err)
		}
		tx2, err := st.SubmitTransaction("bob", "carol", 15)
		if err == nil {
			t.Fatalf("\t%s\tShould not let bob spend coins not received yet: %v", failed, tx2)
		}
		tx2, err = st.SubmitTransaction("bob", "carol", 5)
		if err != nil {
			t.Fatalf("\t%s\tShould accept the second transaction: %v", failed, err)
		}

		block, err := st.MineNewBlock(context.Background(), "")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if bits := signature.LeadingZeroBits(block.Hash()); bits < 4 {
			t.Fatalf("\t%s\tShould have at least 4 leading zero bits: %d", failed, bits)
		}
		t.Logf("\t%s\tShould have at least 4 leading zero bits.", success)

		trans := block.Values()
		if len(trans) != 3 || !trans[0].Equals(tx1) || !trans[1].Equals(tx2) || !trans[2].IsReward() {
			t.Fatalf("\t%s\tShould contain the pool in order plus the reward: %v", failed, trans)
		}
		t.Logf("\t%s\tShould contain the pool in order plus the reward.", success)

		if st.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould empty the pool.", failed)
		}
		t.Logf("\t%s\tShould empty the pool.", success)

		exp := map[database.AccountID]uint64{"alice": 40, "bob": 10, "carol": 5, "miner": 100}
		bals := balances(t, st)
		for accountID, value := range exp {
			if bals[accountID] != value {
				t.Fatalf("\t%s\tShould update the balances: got %v, exp %v", failed, bals, exp)
			}
		}
		t.Logf("\t%s\tShould update the balances.", success)

		if _, err := st.MineNewBlock(context.Background(), "dave"); err != nil {
			t.Fatalf("\t%s\tShould be able to mine an empty pool: %v", failed, err)
		}
		if bals := balances(t, st); bals["dave"] != 100 {
			t.Fatalf("\t%s\tShould pay the requested beneficiary: %v", failed, bals)
		}
		t.Logf("\t%s\tShould pay the requested beneficiary.", success)

		if chain := st.QueryChain(); len(chain) != 3 || chain[2].TransCount != 1 {
			t.Fatalf("\t%s\tShould have three blocks: %v", failed, chain)
		}
		t.Logf("\t%s\tShould have three blocks.", success)

		if err := st.ValidateChain(); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould have a valid chain.", success)
	}
}

func Test_CancelMining(t *testing.T) {
	t.Log("Given the need to cancel a mining attempt.")
	{
		st := newState(t, newGenesis(64), nil)

		if st.CancelMining() {
			t.Fatalf("\t%s\tShould have nothing to cancel.", failed)
		}

		st.SubmitTransaction("alice", "bob", 10)
		st.SubmitTransaction("bob", "alice", 5)
		before := pendingIDs(st)

		errCh := mineInBackground(t, st)

		if _, err := st.MineNewBlock(context.Background(), ""); !errors.Is(err, state.ErrMiningInProgress) {
			t.Fatalf("\t%s\tShould allow one mining attempt at a time: %v", failed, err)
		}
		t.Logf("\t%s\tShould allow one mining attempt at a time.", success)

		// Alice has 40 left after the 10 being mined.
		if _, err := st.SubmitTransaction("alice", "bob", 41); !errors.Is(err, database.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould count coins being mined against the balance: %v", failed, err)
		}
		late, err := st.SubmitTransaction("alice", "bob", 40)
		if err != nil {
			t.Fatalf("\t%s\tShould accept transactions while mining: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept transactions while mining.", success)

		if !st.CancelMining() {
			t.Fatalf("\t%s\tShould cancel the attempt.", failed)
		}

		if err := <-errCh; !errors.Is(err, state.ErrMiningCancelled) {
			t.Fatalf("\t%s\tShould get the cancelled error: %v", failed, err)
		}
		t.Logf("\t%s\tShould get the cancelled error.", success)

		after := pendingIDs(st)
		if len(after) != 3 || after[0] != before[0] || after[1] != before[1] || after[2] != late.ID {
			t.Fatalf("\t%s\tShould restore the pool ahead of new transactions: got %v", failed, after)
		}
		t.Logf("\t%s\tShould restore the pool ahead of new transactions.", success)

		if len(st.QueryChain()) != 1 {
			t.Fatalf("\t%s\tShould not change the chain.", failed)
		}
		t.Logf("\t%s\tShould not change the chain.", success)

		if st.IsMining() {
			t.Fatalf("\t%s\tShould not be mining.", failed)
		}
		t.Logf("\t%s\tShould not be mining.", success)
	}
}

func Test_NoNegativeBalances(t *testing.T) {
	t.Log("Given the need to never overdraw an account.")
	{
		st := newState(t, newGenesis(1), nil)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var accepted uint64

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tx, err := st.SubmitTransaction("alice", "bob", 7); err == nil {
					mu.Lock()
					accepted += tx.Value
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if accepted > 50 {
			t.Fatalf("\t%s\tShould not accept more than alice holds: %d", failed, accepted)
		}
		t.Logf("\t%s\tShould not accept more than alice holds.", success)

		if _, err := st.MineNewBlock(context.Background(), ""); err != nil {
			t.Fatalf("\t%s\tShould be able to mine the pool: %v", failed, err)
		}

		bals := balances(t, st)
		if bals["alice"] != 50-accepted || bals["bob"] != 5+accepted {
			t.Fatalf("\t%s\tShould move exactly the accepted coins: %v", failed, bals)
		}
		t.Logf("\t%s\tShould move exactly the accepted coins.", success)
	}
}

func Test_Persistence(t *testing.T) {
	t.Log("Given the need to reload a chain from storage.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct storage: %v", failed, err)
		}

		st := newState(t, newGenesis(4), strg)
		st.SubmitTransaction("alice", "bob", 10)
		if _, err := st.MineNewBlock(context.Background(), ""); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		st.SubmitTransaction("bob", "alice", 15)
		if _, err := st.MineNewBlock(context.Background(), ""); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		reloaded := newState(t, newGenesis(4), strg)

		got, exp := balances(t, reloaded), balances(t, st)
		if len(got) != len(exp) {
			t.Fatalf("\t%s\tShould reproduce the balances: got %v, exp %v", failed, got, exp)
		}
		for accountID, value := range exp {
			if got[accountID] != value {
				t.Fatalf("\t%s\tShould reproduce the balances: got %v, exp %v", failed, got, exp)
			}
		}
		t.Logf("\t%s\tShould reproduce the balances.", success)

		if reloaded.RetrieveLatestBlock().Hash() != st.RetrieveLatestBlock().Hash() {
			t.Fatalf("\t%s\tShould reproduce the tip.", failed)
		}
		t.Logf("\t%s\tShould reproduce the tip.", success)

		stats := reloaded.QueryStats()
		if stats.TotalBlocks != 3 || stats.TransferTrans != 2 || stats.RewardTrans != 2 || stats.GenesisTrans != 2 || !stats.Valid {
			t.Fatalf("\t%s\tShould report the chain statistics: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould report the chain statistics.", success)

		if stats.CoinsMinted != 255 {
			t.Fatalf("\t%s\tShould count the minted coins: %d", failed, stats.CoinsMinted)
		}
		t.Logf("\t%s\tShould count the minted coins.", success)

		if blocks := reloaded.QueryBlocksByAccount("bob"); len(blocks) != 3 {
			t.Fatalf("\t%s\tShould find the blocks for bob: %d", failed, len(blocks))
		}
		if blocks := reloaded.QueryBlocksByNumber(1, state.QueryLatest); len(blocks) != 2 {
			t.Fatalf("\t%s\tShould find the blocks by number: %d", failed, len(blocks))
		}
		t.Logf("\t%s\tShould query the blocks.", success)
	}
}

func Test_MineOverflow(t *testing.T) {
	t.Log("Given the need to never mine a block that wraps a balance.")
	{
		gen := newGenesis(4)
		gen.Balances = map[string]uint64{"alice": math.MaxUint64}

		st := newState(t, gen, nil)
		defer st.Shutdown()

		if _, err := st.SubmitTransaction("alice", "bob", 10); err != nil {
			t.Fatalf("\t%s\tShould accept the transaction: %v", failed, err)
		}

		_, err := st.MineNewBlock(context.Background(), "alice")
		if !errors.Is(err, database.ErrBalanceOverflow) {
			t.Fatalf("\t%s\tShould refuse to mine a reward alice can't hold: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to mine a reward alice can't hold.", success)

		if n := len(st.QueryChain()); n != 1 {
			t.Fatalf("\t%s\tShould not add the block to the chain: %d blocks", failed, n)
		}
		t.Logf("\t%s\tShould not add the block to the chain.", success)

		if n := st.QueryMempoolLength(); n != 1 {
			t.Fatalf("\t%s\tShould put the transfer back in the pool: %d", failed, n)
		}
		t.Logf("\t%s\tShould put the transfer back in the pool.", success)

		bals := balances(t, st)
		if bals["alice"] != math.MaxUint64 || bals["bob"] != 0 {
			t.Fatalf("\t%s\tShould keep the balances unchanged: %v", failed, bals)
		}
		t.Logf("\t%s\tShould keep the balances unchanged.", success)

		if err := st.ValidateChain(); err != nil {
			t.Fatalf("\t%s\tShould still have a valid chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould still have a valid chain.", success)

		if stats := st.QueryStats(); stats.CoinsMinted != math.MaxUint64 {
			t.Fatalf("\t%s\tShould count the coins in circulation: %d", failed, stats.CoinsMinted)
		}
		t.Logf("\t%s\tShould count the coins in circulation.", success)
	}
}
