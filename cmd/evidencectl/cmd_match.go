package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/extract"
)

var matchFlags struct {
	requirement string
	hints       []string
	file        string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score one document against one requirement",
	Long: `Extract text from a PDF, DOCX or text file and ask the model how well it
evidences the requirement.

Usage:
  evidencectl match --requirement "Password policy documented" --hint "password policy" --file policy.pdf`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVarP(&matchFlags.requirement, "requirement", "r", "", "Requirement text")
	f.StringArrayVar(&matchFlags.hints, "hint", nil, "Hint keyword (repeatable)")
	f.StringVarP(&matchFlags.file, "file", "f", "", "Evidence document")
	_ = matchCmd.MarkFlagRequired("requirement")
	_ = matchCmd.MarkFlagRequired("file")
}

func runMatch(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(matchFlags.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", matchFlags.file, err)
	}
	text, err := extract.Extractor{}.Text(filepath.Base(matchFlags.file), "", data)
	if err != nil {
		return err
	}
	svc, err := newAnalysis()
	if err != nil {
		return err
	}

	hints := matchFlags.hints
	if hints == nil {
		hints = []string{}
	}
	res := svc.AnalyzeDocumentMatch(cmd.Context(), evidence.DocumentMatchRequest{
		DocumentText: text,
		Requirement:  matchFlags.requirement,
		Hints:        hints,
	})
	return printJSON(cmd.OutOrStdout(), res)
}
