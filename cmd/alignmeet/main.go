// Command alignmeet annotates meeting transcripts against their minutes.
package main

import (
	"os"

	"github.com/ELITR/alignmeet/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
