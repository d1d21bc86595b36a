package checklist

import (
	"math"
	"time"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

// Status of a checklist item
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusCompleted Status = "COMPLETED"
)

// Confidence thresholds (exclusive) used by BestStatus.
const (
	CompletedAbove = 0.7
	PartialAbove   = 0.3
)

// Evidence is a document attached to an item together with its score.
type Evidence struct {
	DocumentID       string    `json:"documentId" yaml:"documentId"`
	DocumentName     string    `json:"documentName" yaml:"documentName"`
	DocumentURL      string    `json:"documentUrl,omitempty" yaml:"documentUrl,omitempty"`
	Confidence       float64   `json:"confidence" yaml:"confidence"`
	UploadedAt       time.Time `json:"uploadedAt" yaml:"uploadedAt"`
	RelevantSections string    `json:"relevantSections" yaml:"relevantSections"`
}

// Item is one requirement of a checklist
type Item struct {
	ID          string     `json:"id" yaml:"id"`
	Category    string     `json:"category" yaml:"category"`
	Requirement string     `json:"requirement" yaml:"requirement"`
	Hints       []string   `json:"hints" yaml:"hints"`
	Status      Status     `json:"status" yaml:"status"`
	Evidence    []Evidence `json:"evidence" yaml:"evidence"`
}

// Checklist is the aggregate root
type Checklist struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Items       []Item `json:"items" yaml:"items"`
}

// Progress summarizes item statuses of a checklist.
type Progress struct {
	ChecklistID          string  `json:"checklistId"`
	TotalItems           int     `json:"totalItems"`
	CompletedItems       int     `json:"completedItems"`
	PartialItems         int     `json:"partialItems"`
	PendingItems         int     `json:"pendingItems"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// BestStatus derives an item status from the highest-confidence evidence,
// so adding a weaker document never downgrades an item.
func BestStatus(list []Evidence) Status {
	if len(list) == 0 {
		return StatusPending
	}
	best := 0.0
	for _, e := range list {
		if e.Confidence > best {
			best = e.Confidence
		}
	}
	switch {
	case best > CompletedAbove:
		return StatusCompleted
	case best > PartialAbove:
		return StatusPartial
	default:
		return StatusPending
	}
}

// Item returns a pointer into c.Items so callers can mutate it in place.
func (c *Checklist) Item(id string) (*Item, bool) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// AttachEvidence appends e to the item and recomputes its status.
func (it *Item) AttachEvidence(e Evidence) {
	it.Evidence = append(it.Evidence, e)
	it.Status = BestStatus(it.Evidence)
}

// Progress counts items per status; percentage is rounded to 2 decimals.
func (c *Checklist) Progress() Progress {
	p := Progress{ChecklistID: c.ID, TotalItems: len(c.Items)}
	for _, it := range c.Items {
		switch it.Status {
		case StatusCompleted:
			p.CompletedItems++
		case StatusPartial:
			p.PartialItems++
		case StatusPending:
			p.PendingItems++
		}
	}
	if p.TotalItems > 0 {
		pct := float64(p.CompletedItems) * 100.0 / float64(p.TotalItems)
		p.CompletionPercentage = math.Round(pct*100.0) / 100.0
	}
	return p
}

// GapRequest builds the gap-analysis input: every item as a requirement and
// every attached document as evidence for that item's requirement.
func (c *Checklist) GapRequest() evidence.GapAnalysisRequest {
	req := evidence.GapAnalysisRequest{
		Requirements: make([]evidence.RequirementRef, 0, len(c.Items)),
		EvidenceList: []evidence.EvidenceRef{},
	}
	for _, it := range c.Items {
		req.Requirements = append(req.Requirements, evidence.RequirementRef{
			ID:          it.ID,
			Requirement: it.Requirement,
			Status:      string(it.Status),
		})
		for _, e := range it.Evidence {
			req.EvidenceList = append(req.EvidenceList, evidence.EvidenceRef{
				DocumentName: e.DocumentName,
				Requirement:  it.Requirement,
			})
		}
	}
	return req
}

// Label formats an item as "ID: requirement".
func (it *Item) Label() string {
	return it.ID + ": " + it.Requirement
}
