package commands

import (
	"fmt"
	"io"
)

// Transactions prints the transactions on the chain in order. When an
// account is specified only its transactions are printed.
func Transactions(w io.Writer, chain Chain, acct string) error {
	for _, block := range chain.Blocks {
		for _, tx := range block.Values() {
			if acct != "" && string(tx.FromID) != acct && string(tx.ToID) != acct {
				continue
			}

			fmt.Fprintf(w, "Block: %d  ID: %s  Kind: %s  From: %s  To: %s  Value: %d\n",
				block.Header.Number, tx.ID, tx.Kind, tx.FromID, tx.ToID, tx.Value)
		}
	}

	return nil
}
