package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alt-text",
		Short: "Visual asset extraction tool with LLM-powered captioning",
		Long: `Alt-Text extracts visual assets (images, tables, equations) from PDFs,
DOCX files, raw images, or image URLs, and describes each one with a
vision-capable LLM for review, editing, and export.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())

	return cmd
}
