package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sitebook/sitebook/internal/config"
)

//go:embed templates/sitebook.yaml
var bookTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter book file",
		Long: `Init creates a new sitebook.yaml book file in the current directory.

The generated file includes:
- A worked example volume with two sections
- Commented examples for depth limits, outline policies, and URL patterns
- Documentation for all available options

Examples:
  # Create sitebook.yaml in the current directory
  sitebook init

  # Create the book file at a specific path
  sitebook init -o books/standards.yaml

  # Force overwrite an existing file
  sitebook init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultBookFile,
		"Output file path for the book file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing book file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("book file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := bookTemplate.ReadFile("templates/sitebook.yaml")
	if err != nil {
		return fmt.Errorf("failed to read book template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write book file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write book file: %w", err)
	}

	fmt.Printf("Created book file: %s\n", outputPath)
	fmt.Println("\nEdit this file to define your volumes:")
	fmt.Println("  - Base URL and seed pages per section")
	fmt.Println("  - Crawl depth and boundary handling")
	fmt.Println("  - Outline policy (crawl-parent or url-path)")
	fmt.Println("\nThen run \"sitebook compile\".")

	return nil
}
