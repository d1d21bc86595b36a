package checklists

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/evidence-analyzer/internal/application"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

// DocumentMatcher scores a document against one requirement.
type DocumentMatcher interface {
	AnalyzeDocumentMatch(ctx context.Context, req evidence.DocumentMatchRequest) evidence.AnalysisResult
}

// DocumentStore keeps the original uploaded file.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// TextExtractor turns an upload into plain text.
type TextExtractor interface {
	Text(filename, contentType string, data []byte) (string, error)
}

// Upload is an evidence document received from a client
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service implements checklist use-cases. Documents and Analyses are optional.
// Read-modify-save of a checklist is serialized inside one process.
type Service struct {
	Repo        domain.Repository
	Analyses    analyst.Repository
	Documents   DocumentStore
	Extractor   TextExtractor
	Matcher     DocumentMatcher
	Clock       application.Clock
	Concurrency int

	mu sync.Mutex
}

// ItemAnalysis is the outcome of analyzing one document for one item
type ItemAnalysis struct {
	ChecklistID  string                  `json:"checklistId"`
	DocumentName string                  `json:"documentName"`
	DocumentURL  string                  `json:"documentUrl,omitempty"`
	Analysis     evidence.AnalysisResult `json:"analysis"`
	Item         domain.Item             `json:"item"`
}

// ItemMatch is one row of a whole-checklist document analysis
type ItemMatch struct {
	ItemID      string                  `json:"itemId"`
	Requirement string                  `json:"requirement"`
	Analysis    evidence.AnalysisResult `json:"analysis"`
	Attached    bool                    `json:"attached"`
}

type ChecklistAnalysis struct {
	ChecklistID  string          `json:"checklistId"`
	DocumentName string          `json:"documentName"`
	DocumentURL  string          `json:"documentUrl,omitempty"`
	Matches      []ItemMatch     `json:"matches"`
	Progress     domain.Progress `json:"progress"`
}

func (s *Service) List(ctx context.Context) ([]*domain.Checklist, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Checklist, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) Progress(ctx context.Context, id string) (domain.Progress, error) {
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Progress{}, err
	}
	return c.Progress(), nil
}

// UpdateItemStatus attaches ev (when given) and recomputes the item status
// from its best evidence.
func (s *Service) UpdateItemStatus(ctx context.Context, checklistID, itemID string, ev *domain.Evidence) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Repo.Get(ctx, checklistID)
	if err != nil {
		return nil, err
	}
	it, ok := c.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	if ev != nil {
		if ev.DocumentID == "" {
			ev.DocumentID = uuid.NewString()
		}
		if ev.UploadedAt.IsZero() {
			ev.UploadedAt = s.now()
		}
		it.AttachEvidence(*ev)
	} else {
		it.Status = domain.BestStatus(it.Evidence)
	}
	if err := s.Repo.Save(ctx, c); err != nil {
		return nil, err
	}
	out := *it
	return &out, nil
}

// AnalyzeUpload scores an upload against a free-standing requirement.
func (s *Service) AnalyzeUpload(ctx context.Context, up Upload, requirement string, hints []string) (evidence.AnalysisResult, error) {
	text, err := s.Extractor.Text(up.Filename, up.ContentType, up.Data)
	if err != nil {
		return evidence.AnalysisResult{}, err
	}
	return s.Matcher.AnalyzeDocumentMatch(ctx, evidence.DocumentMatchRequest{
		DocumentText: text,
		Requirement:  requirement,
		Hints:        hints,
	}), nil
}

// AnalyzeItemDocument stores the upload, scores it against the item and
// attaches it as evidence whatever the score; the item status then follows
// its best evidence.
func (s *Service) AnalyzeItemDocument(ctx context.Context, checklistID, itemID string, up Upload) (ItemAnalysis, error) {
	c, err := s.Repo.Get(ctx, checklistID)
	if err != nil {
		return ItemAnalysis{}, err
	}
	it, ok := c.Item(itemID)
	if !ok {
		return ItemAnalysis{}, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}

	text, err := s.Extractor.Text(up.Filename, up.ContentType, up.Data)
	if err != nil {
		return ItemAnalysis{}, err
	}
	docID := uuid.NewString()
	url, err := s.store(ctx, checklistID+"/"+itemID, docID, up)
	if err != nil {
		return ItemAnalysis{}, err
	}

	res := s.Matcher.AnalyzeDocumentMatch(ctx, evidence.DocumentMatchRequest{
		DocumentText: text,
		Requirement:  it.Requirement,
		Hints:        it.Hints,
	})

	updated, err := s.UpdateItemStatus(ctx, checklistID, itemID, &domain.Evidence{
		DocumentID:       docID,
		DocumentName:     up.Filename,
		DocumentURL:      url,
		Confidence:       res.Confidence,
		UploadedAt:       s.now(),
		RelevantSections: strings.Join(res.RelevantSections, "; "),
	})
	if err != nil {
		return ItemAnalysis{}, err
	}
	s.record(ctx, analyst.KindMatch, checklistID, itemID, up.Filename, url, res)

	return ItemAnalysis{
		ChecklistID:  checklistID,
		DocumentName: up.Filename,
		DocumentURL:  url,
		Analysis:     res,
		Item:         *updated,
	}, nil
}

// AnalyzeChecklistDocument scores one upload against every item that is not
// COMPLETED, concurrently, and attaches it to the items it matches.
func (s *Service) AnalyzeChecklistDocument(ctx context.Context, checklistID string, up Upload) (ChecklistAnalysis, error) {
	c, err := s.Repo.Get(ctx, checklistID)
	if err != nil {
		return ChecklistAnalysis{}, err
	}
	text, err := s.Extractor.Text(up.Filename, up.ContentType, up.Data)
	if err != nil {
		return ChecklistAnalysis{}, err
	}
	docID := uuid.NewString()
	url, err := s.store(ctx, checklistID, docID, up)
	if err != nil {
		return ChecklistAnalysis{}, err
	}

	var open []domain.Item
	for _, it := range c.Items {
		if it.Status != domain.StatusCompleted {
			open = append(open, it)
		}
	}

	matches := make([]ItemMatch, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, it := range open {
		i, it := i, it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.Matcher.AnalyzeDocumentMatch(gctx, evidence.DocumentMatchRequest{
				DocumentText: text,
				Requirement:  it.Requirement,
				Hints:        it.Hints,
			})
			matches[i] = ItemMatch{ItemID: it.ID, Requirement: it.Requirement, Analysis: res, Attached: res.Matches}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ChecklistAnalysis{}, err
	}

	progress, err := s.attachMatches(ctx, checklistID, docID, url, up.Filename, matches)
	if err != nil {
		return ChecklistAnalysis{}, err
	}
	for _, m := range matches {
		s.record(ctx, analyst.KindMatch, checklistID, m.ItemID, up.Filename, url, m.Analysis)
	}

	return ChecklistAnalysis{
		ChecklistID:  checklistID,
		DocumentName: up.Filename,
		DocumentURL:  url,
		Matches:      matches,
		Progress:     progress,
	}, nil
}

func (s *Service) attachMatches(ctx context.Context, checklistID, docID, url, name string, matches []ItemMatch) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Repo.Get(ctx, checklistID)
	if err != nil {
		return domain.Progress{}, err
	}
	now := s.now()
	for _, m := range matches {
		if !m.Attached {
			continue
		}
		it, ok := c.Item(m.ItemID)
		if !ok {
			continue
		}
		it.AttachEvidence(domain.Evidence{
			DocumentID:       docID,
			DocumentName:     name,
			DocumentURL:      url,
			Confidence:       m.Analysis.Confidence,
			UploadedAt:       now,
			RelevantSections: strings.Join(m.Analysis.RelevantSections, "; "),
		})
	}
	if err := s.Repo.Save(ctx, c); err != nil {
		return domain.Progress{}, err
	}
	return c.Progress(), nil
}

func (s *Service) store(ctx context.Context, prefix, docID string, up Upload) (string, error) {
	if s.Documents == nil {
		return "", nil
	}
	key := fmt.Sprintf("%s/%s-%s", prefix, docID, filepath.Base(up.Filename))
	url, err := s.Documents.Put(ctx, key, bytes.NewReader(up.Data), int64(len(up.Data)), up.ContentType)
	if err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return url, nil
}

// record keeps an audit copy of the result; failures are only logged.
func (s *Service) record(ctx context.Context, kind analyst.Kind, checklistID, itemID, name, url string, res any) {
	if s.Analyses == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		log.Printf("analysis record marshal error: checklist=%s item=%s err=%v", checklistID, itemID, err)
		return
	}
	a := &analyst.Analysis{
		ID:           analyst.AnalysisID(uuid.NewString()),
		Kind:         kind,
		ChecklistID:  checklistID,
		ItemID:       itemID,
		DocumentName: name,
		DocumentURL:  url,
		Result:       string(b),
		CreatedAt:    s.now(),
	}
	if err := s.Analyses.Save(ctx, a); err != nil {
		log.Printf("analysis record save error: checklist=%s item=%s err=%v", checklistID, itemID, err)
	}
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return 4
	}
	return s.Concurrency
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
