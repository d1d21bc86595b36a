package report

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/evidence-analyzer/internal/application"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/report"
)

// CriticalCategories are always represented in a gap report when they have
// PENDING items.
var CriticalCategories = []string{"Access Control", "Data Protection", "Risk Management", "Incident Management"}

// Generic recommendations used when the gap analysis yields no suggestions.
const (
	RecommendUpload = "Upload evidence documents for pending requirements"
	RecommendReview = "Review and complete partially covered requirements"
)

const (
	ReasonNoEvidence  = "No evidence provided"
	ReasonIncomplete  = "Incomplete evidence"
	PriorityHigh      = "HIGH"
	PriorityMedium    = "MEDIUM"
	recommendationFmt = "Prepare documentation addressing: "
)

var actionItems = []string{
	"Create or locate the required documentation",
	"Upload the document for AI analysis",
	"Review and address any gaps identified by the AI",
}

// GapAnalyzer runs the AI gap analysis; it never fails, degraded results
// come back as the fallback value.
type GapAnalyzer interface {
	PerformGapAnalysis(ctx context.Context, req evidence.GapAnalysisRequest) evidence.GapAnalysisResult
}

type Service struct {
	Checklists checklist.Repository
	Analyses   analyst.Repository
	Gaps       GapAnalyzer
	Clock      application.Clock
}

func (s *Service) Compliance(ctx context.Context, checklistID string) (domain.ComplianceReport, error) {
	c, err := s.Checklists.Get(ctx, checklistID)
	if err != nil {
		return domain.ComplianceReport{}, err
	}

	p := c.Progress()
	rep := domain.ComplianceReport{
		ChecklistID:   c.ID,
		ChecklistName: c.Name,
		GeneratedAt:   s.stamp(),
		OverallStatus: domain.OverallStatus{
			TotalItems:           p.TotalItems,
			CompletedItems:       p.CompletedItems,
			PartialItems:         p.PartialItems,
			PendingItems:         p.PendingItems,
			CompletionPercentage: p.CompletionPercentage,
		},
		CategorySummaries:     map[string]domain.CategorySummary{},
		CompletedRequirements: []string{},
		PartialRequirements:   []string{},
		PendingRequirements:   []string{},
	}

	for i := range c.Items {
		it := &c.Items[i]
		sum := rep.CategorySummaries[it.Category]
		sum.Category = it.Category
		sum.Total++
		switch it.Status {
		case checklist.StatusCompleted:
			sum.Completed++
			rep.CompletedRequirements = append(rep.CompletedRequirements, it.Label())
		case checklist.StatusPartial:
			rep.PartialRequirements = append(rep.PartialRequirements, it.Label())
		case checklist.StatusPending:
			rep.PendingRequirements = append(rep.PendingRequirements, it.Label())
		}
		rep.CategorySummaries[it.Category] = sum
	}
	for k, sum := range rep.CategorySummaries {
		sum.Percentage = percent(sum.Completed, sum.Total)
		rep.CategorySummaries[k] = sum
	}
	return rep, nil
}

// GapReport lists every unfinished item and asks the gap analyzer for
// critical gaps and recommendations.
func (s *Service) GapReport(ctx context.Context, checklistID string) (domain.GapReport, error) {
	c, err := s.Checklists.Get(ctx, checklistID)
	if err != nil {
		return domain.GapReport{}, err
	}

	rep := domain.GapReport{
		ChecklistID:     c.ID,
		GeneratedAt:     s.stamp(),
		Gaps:            []domain.Gap{},
		CriticalGaps:    []string{},
		Recommendations: []string{},
	}
	for _, it := range c.Items {
		if it.Status == checklist.StatusCompleted {
			continue
		}
		reason := ReasonIncomplete
		if len(it.Evidence) == 0 {
			reason = ReasonNoEvidence
		}
		rep.Gaps = append(rep.Gaps, domain.Gap{
			RequirementID: it.ID,
			Requirement:   it.Requirement,
			Category:      it.Category,
			Status:        string(it.Status),
			Reason:        reason,
		})
	}
	if len(rep.Gaps) == 0 {
		return rep, nil
	}

	res := s.Gaps.PerformGapAnalysis(ctx, c.GapRequest())
	s.record(ctx, c.ID, res)

	if len(res.Suggestions) > 0 {
		rep.Recommendations = append(rep.Recommendations, res.Suggestions...)
	} else {
		rep.Recommendations = append(rep.Recommendations, RecommendUpload, RecommendReview)
	}
	rep.CriticalGaps = append(rep.CriticalGaps, res.CriticalGaps...)
	for _, g := range rep.Gaps {
		if g.Status != string(checklist.StatusPending) || !slices.Contains(CriticalCategories, g.Category) {
			continue
		}
		label := g.RequirementID + ": " + g.Requirement
		if !slices.Contains(rep.CriticalGaps, label) {
			rep.CriticalGaps = append(rep.CriticalGaps, label)
		}
	}
	return rep, nil
}

// Suggestions builds rule-based next steps, one per gap.
func (s *Service) Suggestions(gaps []string) domain.SuggestionResponse {
	out := domain.SuggestionResponse{
		Suggestions: make([]domain.Suggestion, 0, len(gaps)),
		GeneratedAt: s.stamp(),
	}
	for _, g := range gaps {
		priority := PriorityMedium
		lower := strings.ToLower(g)
		if strings.Contains(lower, "password") || strings.Contains(lower, "access") {
			priority = PriorityHigh
		}
		out.Suggestions = append(out.Suggestions, domain.Suggestion{
			Gap:            g,
			Recommendation: recommendationFmt + g,
			Priority:       priority,
			ActionItems:    slices.Clone(actionItems),
		})
	}
	return out
}

func (s *Service) record(ctx context.Context, checklistID string, res evidence.GapAnalysisResult) {
	if s.Analyses == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		log.Printf("gap record marshal error: checklist=%s err=%v", checklistID, err)
		return
	}
	a := &analyst.Analysis{
		ID:          analyst.AnalysisID(uuid.NewString()),
		Kind:        analyst.KindGap,
		ChecklistID: checklistID,
		Result:      string(b),
		CreatedAt:   s.now(),
	}
	if err := s.Analyses.Save(ctx, a); err != nil {
		log.Printf("gap record save error: checklist=%s err=%v", checklistID, err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) stamp() string { return s.now().Format(time.RFC3339Nano) }

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*100.0*100.0/float64(total)) / 100.0
}
