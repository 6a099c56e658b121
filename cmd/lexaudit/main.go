// Package main implements the lexaudit CLI for legal document analysis.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/embeddings"
	"github.com/lexaudit/lexaudit/internal/extraction"
	"github.com/lexaudit/lexaudit/internal/index"
	"github.com/lexaudit/lexaudit/internal/llm"
	"github.com/lexaudit/lexaudit/internal/logging"
	"github.com/lexaudit/lexaudit/internal/pipeline"
)

var (
	configPath string
	// version is set at build time via -ldflags.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lexaudit",
	Short: "Self-correcting retrieval pipeline for legal document analysis",
	Long: `lexaudit indexes a legal document, extracts six categories of structured
data through a bounded self-correction loop, checks compliance rules, and
writes a versioned JSON report.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text-file>",
	Short: "Analyze a pre-extracted legal document text file",
	Long: `Analyze runs the full pipeline against a plain-text legal document.

Examples:
  # Analyze with defaults (Groq endpoint, local embeddings)
  LEXAUDIT_LLM_API_KEY=... lexaudit analyze benefits_act.txt

  # Analyze with a config file
  lexaudit --config lexaudit.yaml analyze benefits_act.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return err
	}
	defer embedder.Close()

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return err
	}
	extractor, err := extraction.NewExtractor(client, logger.Named("extraction"))
	if err != nil {
		return err
	}
	indexes, err := index.NewManager(embedder, logger.Named("index"))
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, indexes, extractor, logger.Named("pipeline"))
	if err != nil {
		return err
	}

	documentName := documentNameFromPath(args[0])
	logger.Info("starting analysis",
		zap.String("document", documentName),
		zap.Int("bytes", len(text)),
	)

	outcome, err := p.Run(ctx, documentName, string(text))
	if err != nil {
		return err
	}

	summary := outcome.Report.RuleChecks.Summary
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outcome.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Rules passed: %d/%d (%.1f%%), status: %s\n",
		summary.Passed, summary.TotalRules, summary.PassRate, summary.ComplianceStatus)
	return nil
}
