package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/ai/prompt"
)

const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultMatchMaxTokens = 500
	DefaultGapMaxTokens   = 800
)

// Options tune the matching pipeline.
type Options struct {
	Model          string
	MatchMaxTokens int
	GapMaxTokens   int
	// EnforceMatchRule recomputes Matches as Confidence >= evidence.MatchThreshold
	// instead of trusting the model's own field.
	EnforceMatchRule bool
	// StrictShape turns a mistyped field into the fallback result instead of
	// defaulting only that field.
	StrictShape bool
}

// Service runs prompt → model → normalize (→ reconcile) for one request.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	client ai.Client
	opts   Options
}

func NewService(client ai.Client, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MatchMaxTokens <= 0 {
		opts.MatchMaxTokens = DefaultMatchMaxTokens
	}
	if opts.GapMaxTokens <= 0 {
		opts.GapMaxTokens = DefaultGapMaxTokens
	}
	return &Service{client: client, opts: opts}
}

// AnalyzeDocumentMatch scores a document against one requirement. It never
// fails: any invocation or parse error yields evidence.MatchFallback.
func (s *Service) AnalyzeDocumentMatch(ctx context.Context, req evidence.DocumentMatchRequest) evidence.AnalysisResult {
	res, err := s.match(ctx, req)
	if err != nil {
		log.Printf("ai match analysis error: model=%s requirement=%q err=%v", s.opts.Model, req.Requirement, err)
		return evidence.MatchFallback()
	}
	return res
}

func (s *Service) match(ctx context.Context, req evidence.DocumentMatchRequest) (evidence.AnalysisResult, error) {
	raw, err := s.client.Invoke(ctx, ai.Invocation{
		Model:     s.opts.Model,
		System:    prompt.MatchSystemPrompt(),
		User:      prompt.BuildMatchPrompt(req),
		MaxTokens: s.opts.MatchMaxTokens,
	})
	if err != nil {
		return evidence.AnalysisResult{}, fmt.Errorf("invoke model: %w", err)
	}

	res, err := NormalizeMatch(raw)
	if err = s.tolerateShape(err); err != nil {
		return evidence.AnalysisResult{}, err
	}
	if s.opts.EnforceMatchRule {
		res.Matches = res.Confidence >= evidence.MatchThreshold
	}
	return res, nil
}

// PerformGapAnalysis finds uncovered, partial and critical gaps. Critical
// gaps are reconciled against req.Requirements. It never fails: any
// invocation or parse error yields evidence.GapFallback.
func (s *Service) PerformGapAnalysis(ctx context.Context, req evidence.GapAnalysisRequest) evidence.GapAnalysisResult {
	res, err := s.gaps(ctx, req)
	if err != nil {
		log.Printf("ai gap analysis error: model=%s requirements=%d err=%v", s.opts.Model, len(req.Requirements), err)
		return evidence.GapFallback()
	}
	return res
}

func (s *Service) gaps(ctx context.Context, req evidence.GapAnalysisRequest) (evidence.GapAnalysisResult, error) {
	raw, err := s.client.Invoke(ctx, ai.Invocation{
		Model:     s.opts.Model,
		System:    prompt.GapSystemPrompt(),
		User:      prompt.BuildGapPrompt(req),
		MaxTokens: s.opts.GapMaxTokens,
	})
	if err != nil {
		return evidence.GapAnalysisResult{}, fmt.Errorf("invoke model: %w", err)
	}

	res, err := NormalizeGap(raw)
	if err = s.tolerateShape(err); err != nil {
		return evidence.GapAnalysisResult{}, err
	}
	res.CriticalGaps = ReconcileCriticalGaps(res.CriticalGaps, req.Requirements)
	return res, nil
}

// tolerateShape logs and drops a *ShapeError unless StrictShape is set.
func (s *Service) tolerateShape(err error) error {
	var shape *ShapeError
	if err == nil || !errors.As(err, &shape) || s.opts.StrictShape {
		return err
	}
	log.Printf("ai response defaulted: model=%s fields=%v", s.opts.Model, shape.Fields)
	return nil
}
