package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

const matchTemplate = `
Analyze if this document provides evidence for the compliance requirement.

DOCUMENT CONTENT:
%s

REQUIREMENT:
%s

HINTS FOR MATCHING:
%s

CONFIDENCE SCORING GUIDELINES:
- 0.9-1.0: Comprehensive, detailed evidence that fully addresses all aspects
- 0.7-0.9: Good evidence with most requirements covered
- 0.4-0.7: Partial evidence - mentions topic but lacks important details
- 0.1-0.4: Minimal evidence - brief mention without substance or specifics
- 0.0-0.1: No relevant evidence - completely wrong topic or no mention at all

IMPORTANT:
- If document mentions the topic but is very brief/vague, score 0.1-0.3 (not 0)
- Never return 0.0 confidence unless the document is completely unrelated to the topic
- "matches" = true if confidence >= 0.1 (any mention), false if < 0.1 (wrong topic)

Return ONLY a JSON object with this exact structure (no additional text):
{
  "matches": boolean,
  "confidence": number between 0.0 and 1.0,
  "relevant_sections": array of relevant quotes (max 2),
  "reasoning": brief explanation,
  "missing_elements": array of what's still needed
}`

// BuildMatchPrompt renders the document-vs-requirement instruction. Document
// text, requirement and hints are embedded verbatim; hints are comma-joined.
func BuildMatchPrompt(req evidence.DocumentMatchRequest) string {
	return fmt.Sprintf(matchTemplate,
		req.DocumentText,
		req.Requirement,
		strings.Join(req.Hints, ", "),
	)
}
