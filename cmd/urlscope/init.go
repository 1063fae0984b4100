package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/urlscope.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".urlscope"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new urlscope configuration file",
		Long: `Initialize creates a new .urlscope configuration file in the current directory.

The generated file includes:
- Default settings for crawl depth and politeness delay
- Commented examples for per-site include/exclude patterns
- Documentation for all available options

Examples:
  # Create .urlscope in current directory
  urlscope init

  # Create config file at a specific path
  urlscope init -o myconfig.yaml

  # Force overwrite existing file
  urlscope init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

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

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/urlscope.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure discovery scope such as:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Include patterns and their entity labels")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Exclude patterns vetoing matched URLs")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Seeds, crawl depth, and session cookies per site")

	return nil
}
