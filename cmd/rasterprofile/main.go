package main

import (
	"os"

	"github.com/tingold/orb-rasterprofile/cmd/rasterprofile/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
