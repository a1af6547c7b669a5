package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/accounts"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
)

// Balances prints the balances derived from the chain. The chain is
// validated first so balances are never reported for a broken chain.
func Balances(w io.Writer, chain Chain, onlyAct string) error {
	if err := database.ValidateChain(chain.Blocks, chain.Genesis); err != nil {
		return err
	}

	bals, err := accounts.Replay(chain.Blocks)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", chain.Blocks[len(chain.Blocks)-1].Hash())

	for _, act := range bals.List() {
		if onlyAct != "" && string(act.AccountID) != onlyAct {
			continue
		}
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", act.AccountID, act.Balance)
	}

	return nil
}
