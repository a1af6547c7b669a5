// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/database"
	"github.com/ardanlabs/blockcraft/foundation/blockchain/genesis"
)

// Chain is the set of blocks read from storage along with the genesis
// they are expected to start from.
type Chain struct {
	Genesis genesis.Genesis
	Blocks  []database.Block
}

// Validate audits the chain and reports the first block that breaks it.
func Validate(w io.Writer, chain Chain) error {
	if err := database.ValidateChain(chain.Blocks, chain.Genesis); err != nil {
		return err
	}

	latest := chain.Blocks[len(chain.Blocks)-1]
	fmt.Fprintf(w, "Chain is valid: Blocks: %d  LatestBlockHash: %s\n", len(chain.Blocks), latest.Hash())

	return nil
}
