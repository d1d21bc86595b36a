package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/evidence-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/evidence-analyzer/internal/config"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/ai/openai"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	model      string
}

var rootCmd = &cobra.Command{
	Use:   "evidencectl",
	Short: "Score compliance evidence and find checklist gaps from the terminal",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "config.yaml", "Config file (missing file means defaults + env)")
	pf.StringVar(&rootFlags.model, "model", "", "Model override (default: config ai.model or $OPENAI_MODEL)")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAnalysis builds the analysis service from config, flags and env.
func newAnalysis() (*analysis.Service, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if rootFlags.model != "" {
		cfg.AI.Model = rootFlags.model
	}
	client := openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout)
	return analysis.NewService(client, analysis.Options{
		Model:            cfg.AI.Model,
		MatchMaxTokens:   cfg.AI.MatchMaxTokens,
		GapMaxTokens:     cfg.AI.GapMaxTokens,
		EnforceMatchRule: cfg.AI.EnforceMatchRule,
		StrictShape:      cfg.AI.StrictShape,
	}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
