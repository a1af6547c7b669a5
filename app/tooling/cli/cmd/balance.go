package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type balance struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []balance `json:"accounts"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the balances from the chain.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	path := "/v1/accounts/list"
	if len(args) == 1 {
		path += "/" + args[0]
	}

	var bals balances
	if err := call(http.MethodGet, path, nil, &bals); err != nil {
		return err
	}

	fmt.Printf("LatestBlock: %s  Uncommitted: %d\n\n", bals.LatestBlock, bals.Uncommitted)
	for _, bal := range bals.Accounts {
		fmt.Printf("Account: %s  Balance: %d\n", bal.Account, bal.Balance)
	}

	return nil
}
