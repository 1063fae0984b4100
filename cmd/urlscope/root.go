// Package main provides the entry point for the urlscope CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for urlscope.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urlscope",
		Short: "Scoped URL discovery for scraping pipelines",
		Long: `urlscope builds the URL inventory a scraping pipeline starts from.

Given a base domain, it resolves the site's sitemaps, crawls pages
within the domain, classifies every canonical URL against configured
include/exclude patterns, and emits each in-scope URL exactly once
with its entity label.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewDiscoverCmd())
	cmd.AddCommand(NewHistoryCmd())
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
