package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/evidence-analyzer/internal/application"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/checklists"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/report"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/db/memory"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/extract"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/seed"
)

// cannedClient answers match prompts with matchReply and gap prompts with gapReply.
type cannedClient struct {
	matchReply string
	gapReply   string
	err        error
}

func (c *cannedClient) Invoke(_ context.Context, inv ai.Invocation) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if strings.Contains(inv.System, "gap") {
		return c.gapReply, nil
	}
	return c.matchReply, nil
}

const matchReply = "```json\n" + `{"matches": true, "confidence": 0.82, "relevant_sections": ["4.1 Password length"], "reasoning": "Covers password rules", "missing_elements": []}` + "\n```"

const gapReply = `{"uncoveredRequirements": ["IM-1"], "partiallyCovered": [], "criticalGaps": ["Password policy documented and enforced"], "suggestions": ["Write the incident response plan"]}`

func newTestServer(t *testing.T, client ai.Client, maxUpload int64) (http.Handler, *memory.ChecklistRepo) {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewChecklistRepo()
	require.NoError(t, seed.EnsureDefault(ctx, repo))
	analyses := memory.NewAnalysisRepo()
	clock := application.FixedClock(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))

	an := analysis.NewService(client, analysis.Options{})
	cs := &checklists.Service{
		Repo:      repo,
		Analyses:  analyses,
		Extractor: extract.Extractor{},
		Matcher:   an,
		Clock:     clock,
	}
	rs := &report.Service{Checklists: repo, Analyses: analyses, Gaps: an, Clock: clock}
	return NewRouter(Deps{
		Analysis:       an,
		Checklists:     cs,
		Reports:        rs,
		Analyses:       analyses,
		MaxUploadBytes: maxUpload,
	}), repo
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("document", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{}, 0)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, "ok", do(t, h, http.MethodGet, "/healthz", nil).Body.String())
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", nil).Code)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "matches_total")
}

func TestMatchEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{matchReply: matchReply}, 0)

	rec := do(t, h, http.MethodPost, "/api/analyze/match", evidence.DocumentMatchRequest{
		DocumentText: "Passwords must be 12 characters",
		Requirement:  "Password policy documented and enforced",
		Hints:        []string{"password policy"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res evidence.AnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Matches)
	assert.Equal(t, 0.82, res.Confidence)
	assert.Equal(t, []string{"4.1 Password length"}, res.RelevantSections)

	rec = do(t, h, http.MethodPost, "/api/analyze/match", map[string]string{"requirement": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "documentText and requirement are required")
}

func TestMatchEndpointFallback(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{err: ai.ErrQuotaExceeded}, 0)
	rec := do(t, h, http.MethodPost, "/api/analyze/match", evidence.DocumentMatchRequest{DocumentText: "d", Requirement: "r"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res evidence.AnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, evidence.MatchFallback(), res)
}

func TestGapsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{gapReply: gapReply}, 0)

	rec := do(t, h, http.MethodPost, "/api/analyze/gaps", evidence.GapAnalysisRequest{
		Requirements: []evidence.RequirementRef{{ID: "AC-1", Requirement: "Password policy documented and enforced", Status: "PENDING"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res evidence.GapAnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, []string{"AC-1: Password policy documented and enforced"}, res.CriticalGaps)

	rec = do(t, h, http.MethodPost, "/api/analyze/gaps", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChecklistEndpoints(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{}, 0)

	rec := do(t, h, http.MethodGet, "/api/checklists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []checklist.Checklist
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "iso-27001-simplified", list[0].ID)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/checklists/unknown", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/checklists/bad%20id", nil).Code)

	rec = do(t, h, http.MethodPost, "/api/checklists/iso-27001-simplified/items/AC-1/status", map[string]any{
		"status":   "COMPLETED",
		"evidence": map[string]any{"documentName": "policy.pdf", "confidence": 0.9},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var item checklist.Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, checklist.StatusCompleted, item.Status)

	rec = do(t, h, http.MethodGet, "/api/checklists/iso-27001-simplified/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p checklist.Progress
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, 1, p.CompletedItems)
	assert.Equal(t, 10.0, p.CompletionPercentage)

	rec = do(t, h, http.MethodPost, "/api/checklists/iso-27001-simplified/items/ZZ-9/status", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/checklists/iso-27001-simplified/items/AC-1/status", map[string]any{
		"evidence": map[string]any{"documentName": "x.pdf", "confidence": 3},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusIgnoresClientStatus(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{}, 0)

	rec := do(t, h, http.MethodPost, "/api/checklists/iso-27001-simplified/items/AC-2/status", map[string]any{
		"status":   "COMPLETED",
		"evidence": map[string]any{"documentName": "draft.pdf", "confidence": 0.1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var item checklist.Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, checklist.StatusPending, item.Status)

	rec = do(t, h, http.MethodPost, "/api/checklists/iso-27001-simplified/items/AC-2/status", map[string]any{
		"status": "COMPLETED",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, checklist.StatusPending, item.Status)
}

func TestFallbackDetectionComparesWholeResult(t *testing.T) {
	assert.True(t, isMatchFallback(evidence.MatchFallback()))
	assert.False(t, isMatchFallback(evidence.AnalysisResult{
		Matches:          true,
		Confidence:       0.5,
		RelevantSections: []string{"section 2"},
		Reasoning:        evidence.FallbackReasoning,
		MissingElements:  []string{},
	}))

	assert.True(t, isGapFallback(evidence.GapFallback()))
	assert.False(t, isGapFallback(evidence.GapAnalysisResult{
		UncoveredRequirements: []string{"IM-1"},
		PartiallyCovered:      []evidence.PartialCoverage{},
		CriticalGaps:          []string{},
		Suggestions:           []string{evidence.FallbackGapSuggestion},
	}))
}

func TestRouterWithoutAnalysesRepo(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewChecklistRepo()
	require.NoError(t, seed.EnsureDefault(ctx, repo))
	an := analysis.NewService(&cannedClient{}, analysis.Options{})
	cs := &checklists.Service{Repo: repo, Extractor: extract.Extractor{}, Matcher: an, Clock: application.SystemClock{}}
	h := NewRouter(Deps{Analysis: an, Checklists: cs})

	rec := do(t, h, http.MethodGet, "/api/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/checklists/iso-27001-simplified/items/AC-1/analysis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeDocumentUpload(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{matchReply: matchReply}, 0)

	rec := upload(t, h, "/api/analyze/document", "policy.txt", []byte("Passwords rotate every 90 days"), map[string]string{
		"requirement": "Password policy documented and enforced",
		"hints":       `["password"]`,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success      bool                    `json:"success"`
		DocumentName string                  `json:"documentName"`
		Analysis     evidence.AnalysisResult `json:"analysis"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "policy.txt", body.DocumentName)
	assert.Equal(t, 0.82, body.Analysis.Confidence)

	rec = upload(t, h, "/api/analyze/document", "", nil, map[string]string{"requirement": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No document uploaded")

	rec = upload(t, h, "/api/analyze/document", "policy.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, h, "/api/analyze/document", "policy.txt", []byte("x"), map[string]string{"requirement": "r", "hints": "not json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{matchReply: matchReply}, 1024)
	rec := upload(t, h, "/api/analyze/document", "big.txt", bytes.Repeat([]byte("a"), 2048), map[string]string{"requirement": "r"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestItemDocumentAndReports(t *testing.T) {
	h, repo := newTestServer(t, &cannedClient{matchReply: matchReply, gapReply: gapReply}, 0)
	base := "/api/checklists/iso-27001-simplified"

	rec := upload(t, h, base+"/items/AC-1/documents", "policy.txt", []byte("Passwords rotate"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out checklists.ItemAnalysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, checklist.StatusCompleted, out.Item.Status)

	c, err := repo.Get(context.Background(), "iso-27001-simplified")
	require.NoError(t, err)
	ac, _ := c.Item("AC-1")
	require.Len(t, ac.Evidence, 1)
	assert.Equal(t, "4.1 Password length", ac.Evidence[0].RelevantSections)

	rec = do(t, h, http.MethodGet, base+"/items/AC-1/analysis", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, base+"/items/AC-2/analysis", nil).Code)

	rec = do(t, h, http.MethodGet, "/api/report/compliance/iso-27001-simplified", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completedRequirements":["AC-1: Password policy documented and enforced"]`)

	rec = do(t, h, http.MethodGet, "/api/report/gaps/iso-27001-simplified", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gaps struct {
		Gaps            []json.RawMessage `json:"gaps"`
		CriticalGaps    []string          `json:"criticalGaps"`
		Recommendations []string          `json:"recommendations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&gaps))
	assert.Len(t, gaps.Gaps, 9)
	assert.Equal(t, "AC-1: Password policy documented and enforced", gaps.CriticalGaps[0])
	assert.Contains(t, gaps.CriticalGaps, "RM-1: Risk assessment conducted annually")
	assert.Equal(t, []string{"Write the incident response plan"}, gaps.Recommendations)

	rec = do(t, h, http.MethodGet, "/api/analyses?checklist_id=iso-27001-simplified&page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	assert.Len(t, records, 2)
	assert.Equal(t, "gap", records[0]["kind"])
}

func TestChecklistDocument(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{matchReply: matchReply}, 0)
	rec := upload(t, h, "/api/checklists/iso-27001-simplified/documents", "handbook.txt", []byte("everything"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out checklists.ChecklistAnalysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Len(t, out.Matches, 10)
	assert.Equal(t, 10, out.Progress.CompletedItems)

	rec = upload(t, h, "/api/checklists/missing/documents", "handbook.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &cannedClient{}, 0)
	rec := do(t, h, http.MethodPost, "/api/report/suggestions", map[string]any{"gaps": []string{"AC-1: Password policy", "DP-1: Backup policy"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Suggestions []struct {
			Priority string `json:"priority"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, "HIGH", out.Suggestions[0].Priority)
	assert.Equal(t, "MEDIUM", out.Suggestions[1].Priority)
}
