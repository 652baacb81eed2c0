package facts

import (
	"context"
	"strings"
)

// Match is a relevance hit: the facts for one category plus where they came
// from, for attribution in the agent's context.
type Match struct {
	Provenance string
	Category   string
	Facts      map[string]any
	Stale      bool
}

// relevanceRules maps fixed keyword lists to baseline categories. Matching is
// case-insensitive substring search against the question text, not NLP.
// Order determines result order.
var relevanceRules = []struct {
	category   string
	provenance string
	keywords   []string
}{
	{"aws_facts", "AWS", []string{"aws", "amazon"}},
	{"gcp_facts", "GCP", []string{"gcp", "google cloud"}},
	{"azure_facts", "Azure", []string{"azure", "microsoft"}},
	{"redis_facts", "Redis", []string{"redis", "cache"}},
	{"kubernetes_facts", "Kubernetes", []string{"kubernetes", "k8s", "eks", "gke", "aks"}},
	{"pricing_patterns", "Pricing Patterns", []string{"cost", "price", "pricing", "expensive", "cheap"}},
}

// Relevant returns the stored facts whose keyword lists match the question.
// Zero matches is a normal outcome. Stale facts are still included, flagged.
// Lookup failures for individual categories are skipped: relevance
// enrichment is best-effort.
func (s *Seeder) Relevant(ctx context.Context, question string) []Match {
	q := strings.ToLower(question)

	var matches []Match
	for _, rule := range relevanceRules {
		if !anyKeyword(q, rule.keywords) {
			continue
		}
		res, err := s.store.GetFacts(ctx, rule.category)
		if err != nil || res == nil {
			continue
		}
		matches = append(matches, Match{
			Provenance: rule.provenance,
			Category:   rule.category,
			Facts:      res.Facts,
			Stale:      res.Stale,
		})
	}
	return matches
}

func anyKeyword(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
