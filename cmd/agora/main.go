// Package main provides the entry point for the Agora task marketplace.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agora",
	Short: "Agora task marketplace",
	Long:  "Agora decomposes high-level goals into contracts, lets autonomous freelancer agents compete on them, and judges the submissions to pick winners.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
