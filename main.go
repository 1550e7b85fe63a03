package main

import (
	"fmt"
	"os"

	"github.com/tessera-editor/tessera/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
