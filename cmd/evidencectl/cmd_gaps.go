package main

import (
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/evidence-analyzer/internal/application"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/report"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/db/memory"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/seed"
)

var gapsFlags struct {
	checklist string
}

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Run the AI gap analysis over a checklist file",
	Long: `Load a checklist YAML file (the built-in ISO 27001 list when --checklist is
empty) and print the gap analysis with reconciled "ID: description" critical gaps.`,
	Args: cobra.NoArgs,
	RunE: runGaps,
}

var reportFlags struct {
	checklist string
	gaps      bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the compliance report (or gap report) for a checklist file",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	gapsCmd.Flags().StringVarP(&gapsFlags.checklist, "checklist", "c", "", "Checklist YAML file")
	reportCmd.Flags().StringVarP(&reportFlags.checklist, "checklist", "c", "", "Checklist YAML file")
	reportCmd.Flags().BoolVar(&reportFlags.gaps, "gaps", false, "Print the gap report instead (calls the model)")
}

func loadChecklist(path string) (*checklist.Checklist, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.Load(path)
}

func runGaps(cmd *cobra.Command, _ []string) error {
	c, err := loadChecklist(gapsFlags.checklist)
	if err != nil {
		return err
	}
	svc, err := newAnalysis()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), svc.PerformGapAnalysis(cmd.Context(), c.GapRequest()))
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c, err := loadChecklist(reportFlags.checklist)
	if err != nil {
		return err
	}
	repo := memory.NewChecklistRepo()
	if err := repo.Save(ctx, c); err != nil {
		return err
	}
	svc := &report.Service{Checklists: repo, Clock: application.SystemClock{}}

	if !reportFlags.gaps {
		rep, err := svc.Compliance(ctx, c.ID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rep)
	}

	an, err := newAnalysis()
	if err != nil {
		return err
	}
	svc.Gaps = an
	rep, err := svc.GapReport(ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rep)
}
