package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Kind of AI analysis
type Kind string

const (
	KindMatch Kind = "match"
	KindGap   Kind = "gap"
)

// Analysis represents an AI analysis result stored for auditing and retrieval
type Analysis struct {
	ID           AnalysisID `json:"id"`
	Kind         Kind       `json:"kind"`
	ChecklistID  string     `json:"checklist_id,omitempty"`
	ItemID       string     `json:"item_id,omitempty"`
	DocumentName string     `json:"document_name,omitempty"`
	DocumentURL  string     `json:"document_url,omitempty"`
	Result       string     `json:"result"` // normalized JSON result
	CreatedAt    time.Time  `json:"created_at"`
}
