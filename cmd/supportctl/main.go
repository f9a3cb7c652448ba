// Command supportctl drives a running AutoCRM service from a shell: submit
// support requests, run demo scenarios and resolve pending approvals.
package main

import (
	"fmt"
	"os"

	"github.com/Strob0t/AutoCRM/cmd/supportctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
