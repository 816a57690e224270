// Package main provides the dfirmqc command, a quality control tool for
// FEMA FIRM database deliveries.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/t968rs/FEMA-Prod-updates/internal/cli"
)

func main() {
	// A missing .env is fine; credentials may come from the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
