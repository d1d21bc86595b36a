package analysis

import (
	"regexp"
	"strings"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
)

// traceableID matches gaps that already start with an ID such as "AC-1:".
var traceableID = regexp.MustCompile(`^[A-Z]+-\d+:`)

// ReconcileCriticalGaps rewrites every gap that lacks a leading requirement ID
// to "<id>: <requirement>" when a requirement can be found for it. Lookup is
// exact (case-insensitive), then gap-contains-requirement, then
// requirement-contains-gap; within each pass the first requirement in list
// order wins. Gaps without a match are returned unchanged.
func ReconcileCriticalGaps(gaps []string, reqs []evidence.RequirementRef) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, reconcileGap(g, reqs))
	}
	return out
}

func reconcileGap(gap string, reqs []evidence.RequirementRef) string {
	if traceableID.MatchString(gap) {
		return gap
	}
	g := strings.ToLower(gap)
	if strings.TrimSpace(g) == "" {
		return gap
	}

	passes := []func(g, r string) bool{
		func(g, r string) bool { return g == r },
		func(g, r string) bool { return strings.Contains(g, r) },
		func(g, r string) bool { return strings.Contains(r, g) },
	}
	for _, match := range passes {
		for _, req := range reqs {
			r := strings.ToLower(req.Requirement)
			if strings.TrimSpace(r) == "" {
				continue
			}
			if match(g, r) {
				return req.ID + ": " + req.Requirement
			}
		}
	}
	return gap
}
