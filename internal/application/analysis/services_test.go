package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

// stubClient returns a canned answer and records every invocation.
type stubClient struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []ai.Invocation
}

func (c *stubClient) Invoke(_ context.Context, inv ai.Invocation) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, inv)
	return c.reply, c.err
}

func TestAnalyzeDocumentMatchEndToEnd(t *testing.T) {
	client := &stubClient{reply: `{"matches":true,"confidence":0.85,"relevant_sections":["risk assessment in Q1"],"reasoning":"Direct match","missing_elements":[]}`}
	svc := NewService(client, Options{})

	res := svc.AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{
		DocumentText: "We performed a risk assessment in Q1 covering all critical systems",
		Requirement:  "Risk assessment conducted annually",
		Hints:        []string{"risk assessment"},
	})

	assert.Equal(t, evidence.AnalysisResult{
		Matches:          true,
		Confidence:       0.85,
		RelevantSections: []string{"risk assessment in Q1"},
		Reasoning:        "Direct match",
		MissingElements:  []string{},
	}, res)

	require.Len(t, client.calls, 1)
	inv := client.calls[0]
	assert.Equal(t, DefaultModel, inv.Model)
	assert.Equal(t, DefaultMatchMaxTokens, inv.MaxTokens)
	assert.Contains(t, inv.System, "compliance analysis expert")
	assert.Contains(t, inv.System, "valid JSON only")
	assert.Contains(t, inv.User, "Risk assessment conducted annually")
}

func TestAnalyzeDocumentMatchFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
	}{
		{"invocation error", &stubClient{err: errors.New("connection refused")}},
		{"quota", &stubClient{err: ai.ErrQuotaExceeded}},
		{"not json", &stubClient{reply: "I think the document matches."}},
		{"truncated json", &stubClient{reply: `{"matches": true, "confid`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewService(tt.client, Options{}).AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
			assert.Equal(t, evidence.AnalysisResult{
				Matches:          false,
				Confidence:       0,
				RelevantSections: []string{},
				Reasoning:        "Error during AI analysis",
				MissingElements:  []string{"Unable to analyze document"},
			}, res)
		})
	}
}

func TestAnalyzeDocumentMatchShapePolicy(t *testing.T) {
	reply := `{"matches":true,"confidence":"high","reasoning":"ok"}`

	lenient := NewService(&stubClient{reply: reply}, Options{}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.True(t, lenient.Matches)
	assert.Zero(t, lenient.Confidence)
	assert.Equal(t, "ok", lenient.Reasoning)

	strict := NewService(&stubClient{reply: reply}, Options{StrictShape: true}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.Equal(t, evidence.MatchFallback(), strict)
}

func TestAnalyzeDocumentMatchNonObjectReply(t *testing.T) {
	lenient := NewService(&stubClient{reply: "[]"}, Options{}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.Equal(t, evidence.AnalysisResult{
		RelevantSections: []string{},
		Reasoning:        evidence.DefaultReasoning,
		MissingElements:  []string{},
	}, lenient)

	strict := NewService(&stubClient{reply: "[]"}, Options{StrictShape: true}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.Equal(t, evidence.MatchFallback(), strict)
}

func TestAnalyzeDocumentMatchRule(t *testing.T) {
	reply := `{"matches":false,"confidence":0.25}`

	trusted := NewService(&stubClient{reply: reply}, Options{}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.False(t, trusted.Matches)

	enforced := NewService(&stubClient{reply: reply}, Options{EnforceMatchRule: true}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.True(t, enforced.Matches)

	below := NewService(&stubClient{reply: `{"matches":true,"confidence":0.05}`}, Options{EnforceMatchRule: true}).
		AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
	assert.False(t, below.Matches)
}

func TestPerformGapAnalysisReconcilesCriticalGaps(t *testing.T) {
	client := &stubClient{reply: "```json\n" + `{
  "uncoveredRequirements": ["AC-1"],
  "partiallyCovered": [],
  "criticalGaps": ["Password policy documented", "RM-1: Risk assessment conducted annually"],
  "suggestions": ["Write a password policy"]
}` + "\n```"}
	svc := NewService(client, Options{Model: "gpt-4o-mini", GapMaxTokens: 1200})

	res := svc.PerformGapAnalysis(context.Background(), evidence.GapAnalysisRequest{
		Requirements: []evidence.RequirementRef{
			{ID: "AC-1", Requirement: "Password policy documented", Status: "PENDING"},
			{ID: "RM-1", Requirement: "Risk assessment conducted annually", Status: "PENDING"},
		},
	})

	assert.Equal(t, []string{"AC-1: Password policy documented", "RM-1: Risk assessment conducted annually"}, res.CriticalGaps)
	assert.Equal(t, []string{"AC-1"}, res.UncoveredRequirements)
	assert.Equal(t, []evidence.PartialCoverage{}, res.PartiallyCovered)
	assert.Equal(t, []string{"Write a password policy"}, res.Suggestions)

	require.Len(t, client.calls, 1)
	assert.Equal(t, "gpt-4o-mini", client.calls[0].Model)
	assert.Equal(t, 1200, client.calls[0].MaxTokens)
	assert.Contains(t, client.calls[0].System, "gap analysis expert")
}

func TestPerformGapAnalysisFallback(t *testing.T) {
	for _, client := range []*stubClient{
		{err: errors.New("timeout")},
		{reply: "<html>bad gateway</html>"},
	} {
		res := NewService(client, Options{}).PerformGapAnalysis(context.Background(), evidence.GapAnalysisRequest{})
		assert.Equal(t, evidence.GapAnalysisResult{
			UncoveredRequirements: []string{},
			PartiallyCovered:      []evidence.PartialCoverage{},
			CriticalGaps:          []string{},
			Suggestions:           []string{"Unable to perform gap analysis due to error"},
		}, res)
	}
}

func TestServiceConcurrentRequests(t *testing.T) {
	client := &stubClient{reply: `{"matches":true,"confidence":0.5}`}
	svc := NewService(client, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := svc.AnalyzeDocumentMatch(context.Background(), evidence.DocumentMatchRequest{Requirement: "r"})
			assert.Equal(t, 0.5, res.Confidence)
		}()
	}
	wg.Wait()
	assert.Len(t, client.calls, 16)
}
