package evidence

// MatchThreshold is the confidence at or above which a document counts as
// evidence for a requirement.
const MatchThreshold = 0.1

// Texts substituted when a field is missing or the pipeline fails.
const (
	DefaultReasoning       = "No analysis available"
	FallbackReasoning      = "Error during AI analysis"
	FallbackMissingElement = "Unable to analyze document"
	FallbackGapSuggestion  = "Unable to perform gap analysis due to error"
)

// DocumentMatchRequest asks whether a document supports one requirement.
type DocumentMatchRequest struct {
	DocumentText string   `json:"documentText"`
	Requirement  string   `json:"requirement"`
	Hints        []string `json:"hints"`
}

// AnalysisResult is the normalized verdict of a document match.
// Matches is taken from the model as-is; see MatchingService options.
type AnalysisResult struct {
	Matches          bool     `json:"matches"`
	Confidence       float64  `json:"confidence"`
	RelevantSections []string `json:"relevant_sections"`
	Reasoning        string   `json:"reasoning"`
	MissingElements  []string `json:"missing_elements"`
}

// RequirementRef is a read-only view of a checklist item.
type RequirementRef struct {
	ID          string `json:"id"`
	Requirement string `json:"requirement"`
	Status      string `json:"status"`
}

// EvidenceRef links an uploaded document to the requirement it supports.
type EvidenceRef struct {
	DocumentName string `json:"documentName"`
	Requirement  string `json:"requirement"`
}

type GapAnalysisRequest struct {
	Requirements []RequirementRef `json:"requirements"`
	EvidenceList []EvidenceRef    `json:"evidenceList"`
}

// PartialCoverage names a requirement with some but incomplete evidence.
type PartialCoverage struct {
	Requirement string `json:"requirement"`
	Reason      string `json:"reason"`
}

// GapAnalysisResult; CriticalGaps entries are "ID: description" once reconciled.
type GapAnalysisResult struct {
	UncoveredRequirements []string          `json:"uncoveredRequirements"`
	PartiallyCovered      []PartialCoverage `json:"partiallyCovered"`
	CriticalGaps          []string          `json:"criticalGaps"`
	Suggestions           []string          `json:"suggestions"`
}

// MatchFallback is returned whenever a document match cannot be completed.
func MatchFallback() AnalysisResult {
	return AnalysisResult{
		Matches:          false,
		Confidence:       0,
		RelevantSections: []string{},
		Reasoning:        FallbackReasoning,
		MissingElements:  []string{FallbackMissingElement},
	}
}

// GapFallback is returned whenever a gap analysis cannot be completed.
func GapFallback() GapAnalysisResult {
	return GapAnalysisResult{
		UncoveredRequirements: []string{},
		PartiallyCovered:      []PartialCoverage{},
		CriticalGaps:          []string{},
		Suggestions:           []string{FallbackGapSuggestion},
	}
}
