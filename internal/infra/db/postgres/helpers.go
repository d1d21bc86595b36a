package postgres

import (
	"encoding/json"
	"strings"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonOrEmpty encodes v, substituting "[]" for nil slices
func jsonOrEmpty(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func decodeItemJSON(it *checklist.Item, hints, evidence string) error {
	it.Hints = []string{}
	it.Evidence = []checklist.Evidence{}
	if strings.TrimSpace(hints) != "" {
		if err := json.Unmarshal([]byte(hints), &it.Hints); err != nil {
			return err
		}
	}
	if strings.TrimSpace(evidence) != "" {
		if err := json.Unmarshal([]byte(evidence), &it.Evidence); err != nil {
			return err
		}
	}
	return nil
}
