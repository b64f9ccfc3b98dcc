// Command bankctl is the command-line client and local gateway for the bank API.
package main

import "github.com/dvcrn/bank-api-client/internal/cli"

func main() {
	cli.Execute()
}
