package main

import (
	"os"

	"github.com/ncclspy/ncclspy/cmd/ncclspy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
