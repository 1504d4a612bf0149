package main

import (
	"fmt"
	"os"

	"github.com/latticeforge/actorcore/cmd/actorctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
