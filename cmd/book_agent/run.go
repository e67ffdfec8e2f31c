package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/observability"
	"github.com/jonathan/book-foundry/internal/storybible"
	"github.com/jonathan/book-foundry/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full book production pipeline end-to-end",
	Long: `Orchestrates the production of one chapter: content drafting -> formatting -> quality review -> publishing, with the quality stage able to send the draft back for revision.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runManuscript  string
	runStoryBible  string
	runOutput      string
	runPolicy      string
	runTitle       string
	runChapter     int
	runCoverPrompt string
	runAPIKey      string
	runVerbose     bool
	runDatabaseURL string
	runArtifactDir string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runManuscript, "manuscript", "m", "", "Path to the manuscript source (text or HTML)")
	runCommand.Flags().StringVarP(&runStoryBible, "story-bible", "b", "", "Path to the story bible JSON file (optional)")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Path the published artifact is written to")
	runCommand.Flags().StringVar(&runPolicy, "policy", "", "Path to the pipeline policy YAML file (optional)")
	runCommand.Flags().StringVarP(&runTitle, "title", "t", "", "Book title")
	runCommand.Flags().IntVar(&runChapter, "chapter", 0, "Chapter number being produced")
	runCommand.Flags().StringVar(&runCoverPrompt, "cover-prompt", "", "Prompt for cover image generation (optional)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")
	runCommand.Flags().StringVar(&runArtifactDir, "artifact-dir", "", "Directory for intermediate artifacts")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("manuscript") {
		cfg.Manuscript = runManuscript
	}
	if cmd.Flags().Changed("story-bible") {
		cfg.StoryBible = runStoryBible
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = runOutput
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = runPolicy
	}
	if cmd.Flags().Changed("title") {
		cfg.Title = runTitle
	}
	if cmd.Flags().Changed("chapter") {
		cfg.Chapter = runChapter
	}
	if cmd.Flags().Changed("cover-prompt") {
		cfg.CoverPrompt = runCoverPrompt
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("artifact-dir") {
		cfg.ArtifactDir = runArtifactDir
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{
		Title:   "Untitled",
		Chapter: 1,
	})

	if cfg.Manuscript == "" {
		return fmt.Errorf("a manuscript source is required (--manuscript or config file)")
	}
	if cfg.Output == "" {
		return fmt.Errorf("an output target is required (--output or config file)")
	}

	app, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose && cfg.StoryBible != "" {
		bible, err := storybible.Load(cfg.StoryBible)
		if err != nil {
			return err
		}
		printer.PrintStoryBible(bible)
	}

	runID, err := app.controller.Start(ctx, types.RunConfig{
		ManuscriptSource: cfg.Manuscript,
		OutputTarget:     cfg.Output,
		StoryBible:       cfg.StoryBible,
		Title:            cfg.Title,
		Chapter:          cfg.Chapter,
		CoverPrompt:      cfg.CoverPrompt,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Started run %s\n", runID)

	run, err := app.controller.Wait(ctx, runID)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printer.PrintRun(run)
	} else {
		for _, res := range run.Stages {
			marker := "ok"
			if res.Status != "succeeded" {
				marker = "FAILED"
			}
			fmt.Printf("  [%s] %-8s %s retries=%d", marker, res.Stage, res.Duration.Round(time.Millisecond), res.Retries)
			if res.ErrorDetail != "" {
				fmt.Printf(" error=%s", res.ErrorDetail)
			}
			fmt.Println()
		}
		if run.Revisions > 0 {
			fmt.Printf("Revisions: %d\n", run.Revisions)
		}
	}

	if run.Status != types.RunSucceeded {
		return fmt.Errorf("run %s finished with status %s", runID, run.Status)
	}
	fmt.Printf("Done! Published to %s\n", cfg.Output)
	return nil
}
