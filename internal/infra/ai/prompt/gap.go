package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

const gapTemplate = `
Based on these compliance requirements and current evidence:

REQUIREMENTS: %s
EVIDENCE PROVIDED: %s

Identify:
1. Uncovered requirements (no evidence at all)
2. Partially covered items (some evidence but incomplete)
3. Critical gaps (most important missing items from security and compliance perspective)
4. Suggested next steps (specific recommendations for each gap)

IMPORTANT for criticalGaps:
- MUST include the requirement ID and description in EXACT format "ID: Description"
- Example: "AC-1: Password policy documented and enforced"
- Example: "RM-1: Risk assessment conducted annually"
- Prioritize security and compliance critical items from ALL categories:
  * Access controls (password policies, user reviews, admin monitoring)
  * Data protection (backups, encryption, retention)
  * Risk management (risk assessments) - VERY IMPORTANT
  * Incident management (response plans, logging)
- Include ALL PENDING items from these critical categories

Return ONLY a JSON object with this exact structure:
{
  "uncoveredRequirements": array of requirement IDs,
  "partiallyCovered": array of objects with {requirement, reason},
  "criticalGaps": array of strings in EXACT format "ID: Description" (use the ID from the requirements array),
  "suggestions": array of specific next steps
}`

// BuildGapPrompt renders the gap-analysis instruction with the requirements
// and evidence serialized as indented JSON.
func BuildGapPrompt(req evidence.GapAnalysisRequest) string {
	reqs, evs := req.Requirements, req.EvidenceList
	if reqs == nil {
		reqs = []evidence.RequirementRef{}
	}
	if evs == nil {
		evs = []evidence.EvidenceRef{}
	}
	return fmt.Sprintf(gapTemplate, indentJSON(reqs), indentJSON(evs))
}

// indentJSON keeps <, > and & literal so requirement text reaches the model unchanged.
func indentJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		// slices of plain structs always marshal
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
