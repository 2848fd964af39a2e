package main

import (
	"fmt"
	"os"

	"churchadmin/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "consolectl:", err)
		os.Exit(1)
	}
}
