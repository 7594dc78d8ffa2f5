package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [docs-dir]",
	Short: "Index training documents into the vector store",
	Long: `Load the documents under the docs directory, split them into chunks,
embed the chunks and index them into the vector store. Previously indexed
versions of the same files are replaced.

Examples:
  dubula ingest
  dubula ingest /data/training-docs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) == 1 {
		cfg.DocsDir = args[0]
	}
	ctx := cmd.Context()

	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))

	pipe, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer pipe.Close()

	n, err := pipe.index(ctx)
	if err != nil {
		return fmt.Errorf("%s failed to index documents: %w", errorStyle.Render("Error:"), err)
	}
	if n == 0 {
		fmt.Println(successStyle.Render(fmt.Sprintf("No documents found under %s", cfg.DocsDir)))
		return nil
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d passages from %s", n, cfg.DocsDir)))

	stats, err := pipe.store.Stats(ctx)
	if err == nil {
		fmt.Printf("Vector store: %v\n", stats)
	}
	return nil
}
