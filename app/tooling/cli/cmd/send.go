package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	from  string
	to    string
	value uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transfer to the mempool.",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Account sending the value.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) error {
	nt := struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Value uint64 `json:"value"`
	}{
		From:  from,
		To:    to,
		Value: value,
	}

	var tx struct {
		ID string `json:"id"`
	}
	if err := call(http.MethodPost, "/v1/tx/submit", nt, &tx); err != nil {
		return err
	}

	fmt.Println("Transaction accepted:", tx.ID)
	return nil
}
