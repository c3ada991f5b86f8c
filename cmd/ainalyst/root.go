package main

import (
	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

var (
	configDir string
	logLevel  string
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "ainalyst",
	Short: "ainalyst - automated research reports and slide decks",
	Long: `ainalyst decomposes a research question into sub-questions, answers each
one from web search results with a language model, merges the answers into a
cited markdown report, and compiles the report into a slide deck.

Configuration comes from ainalyst.yml, a .env file and the environment
(OPENAI_API_KEY, RETRIEVER, TAVILY_API_KEY, ...). Every stage falls back to a
degraded result instead of failing when a provider is unavailable.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding ainalyst.yml and .env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "output directory override")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(slidesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
