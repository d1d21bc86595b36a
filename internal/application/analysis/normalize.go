package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

// ErrParse is wrapped when the cleaned model output is not valid JSON or is null.
var ErrParse = errors.New("ai response is not valid JSON")

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```\\s*$")
)

// ShapeError lists fields present in the model output with an unexpected
// type. The result returned alongside it carries defaults for those fields.
type ShapeError struct {
	Fields []string
}

func (e *ShapeError) Error() string {
	return "ai response shape mismatch: " + strings.Join(e.Fields, ", ")
}

// CleanJSON trims the raw text and strips a surrounding Markdown code fence.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// RootField names the whole document in a ShapeError.
const RootField = "<root>"

// Parse cleans raw model output and decodes it as a JSON object. Valid JSON
// that is not an object (an array, number, string or bool) comes back as an
// empty object with a *ShapeError naming RootField.
func Parse(raw string) (map[string]any, error) {
	cleaned := CleanJSON(raw)
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: top-level value is null", ErrParse)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, &ShapeError{Fields: []string{RootField}}
	}
	return obj, nil
}

// newDecoder parses raw and carries a root shape mismatch into the decoder.
func newDecoder(raw string) (*decoder, error) {
	obj, err := Parse(raw)
	var shape *ShapeError
	switch {
	case err == nil:
		return &decoder{obj: obj}, nil
	case errors.As(err, &shape):
		return &decoder{obj: obj, bad: append([]string{}, shape.Fields...)}, nil
	default:
		return nil, err
	}
}

// NormalizeMatch coerces model output into an AnalysisResult. Missing or
// falsy fields take their defaults. Out-of-range confidence is kept as-is.
// A *ShapeError is returned together with a usable result when a field has
// the wrong type; any other error means the output could not be parsed.
func NormalizeMatch(raw string) (evidence.AnalysisResult, error) {
	d, err := newDecoder(raw)
	if err != nil {
		return evidence.AnalysisResult{}, err
	}
	res := evidence.AnalysisResult{
		Matches:          d.boolean("matches"),
		Confidence:       d.number("confidence"),
		RelevantSections: d.stringList("relevant_sections"),
		Reasoning:        d.text("reasoning", evidence.DefaultReasoning),
		MissingElements:  d.stringList("missing_elements"),
	}
	return res, d.err()
}

// NormalizeGap coerces model output into a GapAnalysisResult with the same
// default-on-missing policy as NormalizeMatch. CriticalGaps are not reconciled here.
func NormalizeGap(raw string) (evidence.GapAnalysisResult, error) {
	d, err := newDecoder(raw)
	if err != nil {
		return evidence.GapAnalysisResult{}, err
	}
	res := evidence.GapAnalysisResult{
		UncoveredRequirements: d.stringList("uncoveredRequirements"),
		PartiallyCovered:      d.partials("partiallyCovered"),
		CriticalGaps:          d.stringList("criticalGaps"),
		Suggestions:           d.stringList("suggestions"),
	}
	return res, d.err()
}

// decoder reads loosely typed fields and remembers which ones were mistyped.
type decoder struct {
	obj map[string]any
	bad []string
}

func (d *decoder) err() error {
	if len(d.bad) == 0 {
		return nil
	}
	return &ShapeError{Fields: d.bad}
}

// value returns the field, treating JSON null as absent.
func (d *decoder) value(key string) (any, bool) {
	v, ok := d.obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (d *decoder) boolean(key string) bool {
	v, ok := d.value(key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.bad = append(d.bad, key)
		return false
	}
	return b
}

func (d *decoder) number(key string) float64 {
	v, ok := d.value(key)
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		d.bad = append(d.bad, key)
		return 0
	}
	return f
}

func (d *decoder) text(key, def string) string {
	v, ok := d.value(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		d.bad = append(d.bad, key)
		return def
	}
	if s == "" {
		return def
	}
	return s
}

func (d *decoder) stringList(key string) []string {
	out := []string{}
	v, ok := d.value(key)
	if !ok {
		return out
	}
	arr, ok := v.([]any)
	if !ok {
		d.bad = append(d.bad, key)
		return out
	}
	for _, it := range arr {
		s, ok := it.(string)
		if !ok {
			d.bad = append(d.bad, key)
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) partials(key string) []evidence.PartialCoverage {
	out := []evidence.PartialCoverage{}
	v, ok := d.value(key)
	if !ok {
		return out
	}
	arr, ok := v.([]any)
	if !ok {
		d.bad = append(d.bad, key)
		return out
	}
	for _, it := range arr {
		m, ok := it.(map[string]any)
		if !ok {
			d.bad = append(d.bad, key)
			return []evidence.PartialCoverage{}
		}
		req, _ := m["requirement"].(string)
		reason, _ := m["reason"].(string)
		out = append(out, evidence.PartialCoverage{Requirement: req, Reason: reason})
	}
	return out
}
