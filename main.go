// main is the entry point for the pmoinsight CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/pmoinsight/cmd"
	"github.com/huangsam/pmoinsight/internal/iostore"
)

func main() {
	err := cmd.Execute()
	iostore.CloseStores()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
