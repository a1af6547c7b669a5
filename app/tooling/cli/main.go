// This program is a command line client for the ledger node.
package main

import "github.com/ardanlabs/blockcraft/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}
