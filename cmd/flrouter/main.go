package main

import (
	"os"

	"github.com/stavrosk/flrouter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
