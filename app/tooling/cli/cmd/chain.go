package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the blocks of the chain.",
	RunE:  chainRun,
}

var pendingCmd = &cobra.Command{
	Use:   "pending [account]",
	Short: "Print the transactions waiting to be mined.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  pendingRun,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the statistics for the chain.",
	RunE:  statsRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit the chain held by the node.",
	RunE:  validateRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	var blocks []struct {
		Number        uint64 `json:"number"`
		Hash          string `json:"hash"`
		PrevBlockHash string `json:"prev_block_hash"`
		TransCount    int    `json:"trans_count"`
		Nonce         uint64 `json:"nonce"`
		BeneficiaryID string `json:"beneficiary"`
	}
	if err := call(http.MethodGet, "/v1/chain/list", nil, &blocks); err != nil {
		return err
	}

	for _, blk := range blocks {
		fmt.Printf("Block[%d] Hash[%s] Prev[%s] Nonce[%d] Txs[%d] Beneficiary[%s]\n",
			blk.Number, blk.Hash, blk.PrevBlockHash, blk.Nonce, blk.TransCount, blk.BeneficiaryID)
	}

	return nil
}

func pendingRun(cmd *cobra.Command, args []string) error {
	path := "/v1/tx/uncommitted/list"
	if len(args) == 1 {
		path += "/" + args[0]
	}

	var trans []struct {
		ID     string `json:"id"`
		FromID string `json:"from"`
		ToID   string `json:"to"`
		Value  uint64 `json:"value"`
	}
	if err := call(http.MethodGet, path, nil, &trans); err != nil {
		return err
	}

	for _, tx := range trans {
		fmt.Printf("ID: %s  From: %s  To: %s  Value: %d\n", tx.ID, tx.FromID, tx.ToID, tx.Value)
	}

	return nil
}

func statsRun(cmd *cobra.Command, args []string) error {
	var stats map[string]any
	if err := call(http.MethodGet, "/v1/chain/stats", nil, &stats); err != nil {
		return err
	}

	return printJSON(stats)
}

func validateRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		Valid     bool    `json:"valid"`
		Length    int     `json:"length"`
		Violation string  `json:"violation"`
		Index     *uint64 `json:"index"`
	}
	if err := call(http.MethodGet, "/v1/chain/validate", nil, &resp); err != nil {
		return err
	}

	if resp.Valid {
		fmt.Printf("Chain is valid: %d blocks\n", resp.Length)
		return nil
	}

	if resp.Index != nil {
		return fmt.Errorf("chain is not valid at block %d: %s", *resp.Index, resp.Violation)
	}
	return fmt.Errorf("chain is not valid: %s", resp.Violation)
}
