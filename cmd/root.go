package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dubula",
	Short: "DUBULA - Restaurant staff training assistant",
	Long: `DUBULA answers restaurant staff training questions from your own
training documents.

It ingests the documents into a vector index, retrieves the passages
relevant to each question, and generates grounded answers with an LLM,
keeping a token-bounded memory of the conversation.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
