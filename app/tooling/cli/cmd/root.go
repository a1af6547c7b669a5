// Package cmd contains the ledger client commands.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/blockcraft/business/web/errs"
	"github.com/spf13/cobra"
)

var (
	url     string
	timeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait on the node.")
}

var rootCmd = &cobra.Command{
	Use:           "cli",
	Short:         "Client for the ledger node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command specified on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// =============================================================================

// call performs the request against the node and decodes the response into
// the provided value. A failure reported by the node is returned as an error.
func call(method string, path string, body any, v any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %v", er.Error, er.Fields)
		}
		return fmt.Errorf("%s", er.Error)
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// printJSON writes the value as indented json.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
