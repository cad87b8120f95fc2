package main

import (
	"fmt"
	"os"

	"github.com/beanbocchi/genestack/internal"
)

func main() {
	if err := internal.Start(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
