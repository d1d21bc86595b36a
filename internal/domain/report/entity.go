package report

// OverallStatus aggregates item statuses of a checklist
type OverallStatus struct {
	TotalItems           int     `json:"totalItems"`
	CompletedItems       int     `json:"completedItems"`
	PartialItems         int     `json:"partialItems"`
	PendingItems         int     `json:"pendingItems"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

type CategorySummary struct {
	Category   string  `json:"category"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// ComplianceReport is a point-in-time view of checklist completion.
type ComplianceReport struct {
	ChecklistID           string                     `json:"checklistId"`
	ChecklistName         string                     `json:"checklistName"`
	GeneratedAt           string                     `json:"generatedAt"`
	OverallStatus         OverallStatus              `json:"overallStatus"`
	CategorySummaries     map[string]CategorySummary `json:"categorySummaries"`
	CompletedRequirements []string                   `json:"completedRequirements"`
	PartialRequirements   []string                   `json:"partialRequirements"`
	PendingRequirements   []string                   `json:"pendingRequirements"`
}

// Gap is an item that is not yet COMPLETED
type Gap struct {
	RequirementID string `json:"requirementId"`
	Requirement   string `json:"requirement"`
	Category      string `json:"category"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// GapReport is the prioritized gap view of a checklist.
type GapReport struct {
	ChecklistID     string   `json:"checklistId"`
	GeneratedAt     string   `json:"generatedAt"`
	Gaps            []Gap    `json:"gaps"`
	CriticalGaps    []string `json:"criticalGaps"`
	Recommendations []string `json:"recommendations"`
}

// Suggestion is a rule-based next step for one gap
type Suggestion struct {
	Gap            string   `json:"gap"`
	Recommendation string   `json:"recommendation"`
	Priority       string   `json:"priority"`
	ActionItems    []string `json:"actionItems"`
}

type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
	GeneratedAt string       `json:"generatedAt"`
}
