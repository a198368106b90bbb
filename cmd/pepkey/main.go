// pepkey - Peptide library generation and PSM scoring tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/pepkey/cmd/pepkey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
