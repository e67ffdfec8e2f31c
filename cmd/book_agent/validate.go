package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/book-foundry/internal/schemas"
)

var (
	validateStoryBible string
	validateRunConfig  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate input documents against their schemas",
	Long:  `Validate a story bible or run configuration JSON file against its embedded JSON schema without starting a run.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateStoryBible, "story-bible", "", "Path to a story bible JSON file")
	validateCmd.Flags().StringVar(&validateRunConfig, "run-config", "", "Path to a run configuration JSON file")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	if validateStoryBible == "" && validateRunConfig == "" {
		return fmt.Errorf("nothing to validate: provide --story-bible and/or --run-config")
	}

	if validateStoryBible != "" {
		if err := validateFile(schemas.StoryBibleSchema, validateStoryBible); err != nil {
			return err
		}
		fmt.Printf("%s: valid story bible\n", validateStoryBible)
	}
	if validateRunConfig != "" {
		if err := validateFile(schemas.RunConfigSchema, validateRunConfig); err != nil {
			return err
		}
		fmt.Printf("%s: valid run configuration\n", validateRunConfig)
	}
	return nil
}

func validateFile(schemaName, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.Validate(schemaName, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
