package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jonathan/book-foundry/internal/agent"
	"github.com/jonathan/book-foundry/internal/artifact"
	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/db"
	"github.com/jonathan/book-foundry/internal/images"
	"github.com/jonathan/book-foundry/internal/llm"
	"github.com/jonathan/book-foundry/internal/pipeline"
	"github.com/jonathan/book-foundry/internal/render"
	"github.com/jonathan/book-foundry/internal/ws"
)

const defaultArtifactDir = ".book_foundry/artifacts"

// application bundles the wired pipeline and its supporting services.
type application struct {
	controller *pipeline.Controller
	wsManager  *ws.Manager
	monitor    *agent.MonitorAgent
	llmClient  llm.Client
	database   *db.DB
}

// buildApplication wires the agents, stores and side channels from the
// merged configuration.
func buildApplication(ctx context.Context, cfg config.Config) (*application, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	client, err := llm.NewClient(ctx, nil, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	artifactDir := cfg.ArtifactDir
	if artifactDir == "" {
		artifactDir = defaultArtifactDir
	}
	store, err := artifact.NewFileStore(artifactDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	// Cover generation is optional; without a key the content stage skips it.
	var imageProvider images.Provider
	imageKey := cfg.ImageAPIKey
	if imageKey == "" {
		imageKey = os.Getenv("OPENAI_API_KEY")
	}
	if imageKey != "" {
		imageProvider, err = images.NewOpenAIProvider(imageKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create image provider: %w", err)
		}
	}

	var database *db.DB
	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL != "" {
		database, err = db.Connect(ctx, dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to database: %v", err)
			log.Printf("Continuing without database persistence...")
			database = nil
		}
	}

	policy, err := config.LoadPolicy(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	var sink agent.EventSink
	var recorder pipeline.RunRecorder
	if database != nil {
		sink = database
		recorder = database
	}
	monitor := agent.NewMonitorAgent(sink)
	wsManager := ws.NewManager()

	controller, err := pipeline.NewController(pipeline.Options{
		Agents: []agent.Agent{
			agent.NewContentAgent(client, store, imageProvider),
			agent.NewFormatAgent(store),
			agent.NewQualityAgent(client, store),
			agent.NewPublishAgent(render.NewChromiumRenderer(), store),
			monitor,
		},
		Policy:   policy,
		Notifier: wsManager,
		Monitor:  monitor,
		Recorder: recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline controller: %w", err)
	}

	return &application{
		controller: controller,
		wsManager:  wsManager,
		monitor:    monitor,
		llmClient:  client,
		database:   database,
	}, nil
}

// close releases the application's resources.
func (a *application) close() {
	a.monitor.Close()
	if err := a.llmClient.Close(); err != nil {
		log.Printf("Warning: failed to close LLM client: %v", err)
	}
	if a.database != nil {
		a.database.Close()
	}
}
