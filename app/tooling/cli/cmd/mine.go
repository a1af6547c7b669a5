package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	beneficiary string
	background  bool
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending transactions into a new block.",
	RunE:  mineRun,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the mining attempt in progress.",
	RunE:  cancelRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(cancelCmd)
	mineCmd.Flags().StringVarP(&beneficiary, "beneficiary", "b", "", "Account that receives the reward.")
	mineCmd.Flags().BoolVar(&background, "background", false, "Ask the node to mine without waiting for the block.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	if background {
		if err := call(http.MethodPost, "/v1/mining/signal", nil, nil); err != nil {
			return err
		}
		fmt.Println("Mining signaled")
		return nil
	}

	mr := struct {
		Beneficiary string `json:"beneficiary"`
	}{
		Beneficiary: beneficiary,
	}

	var blk struct {
		Number uint64 `json:"number"`
		Hash   string `json:"hash"`
		Nonce  uint64 `json:"nonce"`
		Txs    []any  `json:"txs"`
	}
	if err := call(http.MethodPost, "/v1/mining/start", mr, &blk); err != nil {
		return err
	}

	fmt.Printf("Block[%d] Hash[%s] Nonce[%d] Txs[%d]\n", blk.Number, blk.Hash, blk.Nonce, len(blk.Txs))
	return nil
}

func cancelRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := call(http.MethodPost, "/v1/mining/cancel", nil, &resp); err != nil {
		return err
	}

	if !resp.Cancelled {
		fmt.Println("No mining in progress")
		return nil
	}

	fmt.Println("Mining cancelled")
	return nil
}
