// Package main provides the entry point for the book production pipeline CLI
// and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "book_agent",
	Short: "Automated book production pipeline",
	Long:  "book_agent drafts, formats, reviews and publishes book chapters through a staged agent pipeline, with progress streamed over WebSocket.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
