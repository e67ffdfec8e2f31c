package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/server"
)

var (
	serveConfigPath   string
	serveAddr         string
	serveAuthDisabled bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for starting, inspecting and aborting pipeline runs, plus a WebSocket endpoint streaming run progress.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on")
	serveCmd.Flags().BoolVar(&serveAuthDisabled, "no-auth", false, "Disable bearer token authentication (local development only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	var cfg config.Config
	if serveConfigPath != "" {
		loadedCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = serveAddr
	}
	cfg = cfg.MergeWithDefaults(config.Config{ListenAddr: ":8080"})

	app, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	var jwtService *server.JWTService
	if !serveAuthDisabled {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return fmt.Errorf("failed to create JWT config: %w", err)
		}
		jwtService = server.NewJWTService(jwtConfig)
	}

	srv, err := server.New(server.Config{
		Addr:         cfg.ListenAddr,
		AuthDisabled: serveAuthDisabled,
	}, app.controller, app.wsManager, jwtService)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
