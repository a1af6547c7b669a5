package commands_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/blockcraft/app/tooling/admin/commands"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/state"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

func newChain(t *testing.T) commands.Chain {
	t.Helper()

	gen := genesis.Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:   4,
		MiningReward: 100,
		Balances:     map[string]uint64{"alice": 50, "bob": 5},
	}

	strg, err := memory.New()
	require.NoError(t, err)

	st, err := state.New(state.Config{BeneficiaryID: "miner", Genesis: gen, Storage: strg})
	require.NoError(t, err)

	_, err = st.SubmitTransaction("alice", "bob", 30)
	require.NoError(t, err)

	_, err = st.MineNewBlock(context.Background(), "")
	require.NoError(t, err)

	blocks, err := storage.ReadBlocks(strg)
	require.NoError(t, err)
	st.Shutdown()

	return commands.Chain{Genesis: gen, Blocks: blocks}
}

func TestValidate(t *testing.T) {
	chain := newChain(t)

	var out bytes.Buffer
	require.NoError(t, commands.Validate(&out, chain))
	require.Contains(t, out.String(), "Blocks: 2")

	chain.Blocks[1].Header.PrevBlockHash = "0x00"
	err := commands.Validate(&out, chain)
	require.ErrorIs(t, err, database.ErrCorruptChain)
	require.ErrorIs(t, err, database.ErrInvalidLink)
	require.Equal(t, uint64(1), database.GetChainError(err).Index)
}

func TestBalances(t *testing.T) {
	chain := newChain(t)

	var out bytes.Buffer
	require.NoError(t, commands.Balances(&out, chain, ""))
	require.Contains(t, out.String(), "Account: alice  Balance: 20")
	require.Contains(t, out.String(), "Account: bob  Balance: 35")
	require.Contains(t, out.String(), "Account: miner  Balance: 100")

	out.Reset()
	require.NoError(t, commands.Balances(&out, chain, "bob"))
	require.NotContains(t, out.String(), "alice")
}

func TestTransactions(t *testing.T) {
	chain := newChain(t)

	var out bytes.Buffer
	require.NoError(t, commands.Transactions(&out, chain, "miner"))
	require.Contains(t, out.String(), "Kind: mining_reward")
	require.NotContains(t, out.String(), "Kind: transfer")
}
