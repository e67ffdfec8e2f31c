package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/server"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an API bearer token",
	Long:  `Generate a JWT for authenticating against the REST API. Requires JWT_SECRET to be set to the same value the server uses.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject claim")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
