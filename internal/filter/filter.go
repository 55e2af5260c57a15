// Package filter applies post-retrieval rules to a scored list.
package filter

import (
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// Rules are the filter parameters of a pipeline.
type Rules struct {
	// MinScore drops docs scoring strictly below it. Zero disables the check.
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// DenyTerms drops docs whose title or text contains any term, case-insensitively.
	DenyTerms []string `yaml:"deny_terms" json:"deny_terms"`
	// HardCategoryFilter drops docs outside the case's expected category when one is set.
	HardCategoryFilter bool `yaml:"hard_category_filter" json:"hard_category_filter"`
}

// Apply returns the docs of scored that pass rules, in their original order.
// Doc ids absent from the catalog are always dropped.
func Apply(scored []models.ScoredDoc, catalog *models.Catalog, rules Rules, expectedCategory string) []models.ScoredDoc {
	deny := normalizeTerms(rules.DenyTerms)
	out := make([]models.ScoredDoc, 0, len(scored))
	for _, sd := range scored {
		if rules.MinScore != 0 && sd.Score < rules.MinScore {
			continue
		}
		doc := catalog.Get(sd.DocID)
		if doc == nil {
			continue
		}
		if rules.HardCategoryFilter && expectedCategory != "" && doc.Category != expectedCategory {
			continue
		}
		if denied(doc, deny) {
			continue
		}
		out = append(out, sd)
	}
	return out
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func denied(doc *models.Document, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	blob := doc.Title + " " + doc.Text
	for _, t := range terms {
		if utils.ContainsFold(blob, t) {
			return true
		}
	}
	return false
}
