package main

import (
	"os"

	"cetrader/cmd/cetrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
