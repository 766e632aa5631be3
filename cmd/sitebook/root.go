// Package main provides the entry point for the sitebook CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitebook.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitebook",
		Short: "Compile documentation websites into bookmarked PDF volumes",
		Long: `sitebook crawls documentation websites and compiles the pages into
PDF volumes with a table of contents and a bookmark outline that
mirrors the site hierarchy.

Volumes, sections, and seeds are defined in a book file (sitebook.yaml).
Run "sitebook init" to create a starter book file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCompileCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
