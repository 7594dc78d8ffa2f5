package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/chat"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/config"
)

var chatSkipIngest bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the training assistant in the terminal",
	Long: `Start an interactive conversation with the training assistant.

The docs directory is indexed first, then every question is answered from
the retrieved passages. Type "exit" to leave.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and LLM
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  dubula chat
  DOCS_DIR=./docs dubula chat --skip-ingest`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatSkipIngest, "skip-ingest", false, "Skip indexing the docs directory at startup")
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := cmd.Context()

	// Styling
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		promptColor  = lipgloss.Color("#8BE9FD") // Cyan
		answerColor  = lipgloss.Color("#E9E9F4") // Light purple/white
		mutedColor   = lipgloss.Color("#6272A4") // Muted purple
		errorColor   = lipgloss.Color("#FF5555") // Red
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	headerStyle := lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	promptStyle := lipgloss.NewStyle().Foreground(promptColor).Bold(true)
	answerStyle := lipgloss.NewStyle().Foreground(answerColor)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle := lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(successColor)

	pipe, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer pipe.Close()

	if !chatSkipIngest {
		fmt.Println(mutedStyle.Render("→ Indexing training documents..."))
		n, err := pipe.index(ctx)
		if err != nil {
			return fmt.Errorf("%s failed to index documents: %w", errorStyle.Render("Error:"), err)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d passages from %s", n, cfg.DocsDir)))
	}

	composer, err := pipe.newComposer()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("DUBULA - restaurant training assistant"))
	fmt.Println(mutedStyle.Render("Ask about your training documents. Type \"exit\" to leave."))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Question: "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(question, "exit") {
			break
		}

		answer, err := composer.Ask(ctx, question)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrEmptyQuestion):
				continue
			case errors.Is(err, context.Canceled):
				return nil
			default:
				fmt.Println(errorStyle.Render("Error:"), err)
				continue
			}
		}

		fmt.Println()
		fmt.Println(answerStyle.Render(answer))
		fmt.Println()
	}

	return scanner.Err()
}
