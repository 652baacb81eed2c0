package facts

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Pricing patterns extracted from tool responses. Deliberately coarse:
// extraction feeds heuristics, not billing.
var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$(\d+\.\d+)/hour`),
		regexp.MustCompile(`\$(\d+\.\d+)/month`),
		regexp.MustCompile(`\$(\d+)`),
		regexp.MustCompile(`(\d+\.\d+)\s*USD/hour`),
		regexp.MustCompile(`(\d+\.\d+)\s*USD/month`),
	}

	instancePattern = regexp.MustCompile(`(t[23]\.micro|t[23]\.small|t[23]\.medium|m[45]\.large|r[45]\.large)`)

	regionPattern = regexp.MustCompile(`(us-east-1|us-west-2|eu-west-1|ap-southeast-1)`)
)

// ExtractPricingFacts scans a tool response for prices, instance sizes, and
// regions, and merges anything found into the "<technology>_pricing_facts"
// category. Returns the extracted facts, which may be empty.
func (s *Store) ExtractPricingFacts(ctx context.Context, technology, responseText string) (map[string]any, error) {
	if technology == "" {
		return nil, ErrEmptyCategory
	}

	found := make(map[string]any)

	for _, p := range pricePatterns {
		if prices := captures(p, responseText); len(prices) > 0 {
			found["extracted_prices"] = prices
			break
		}
	}

	if instances := uniqueCaptures(instancePattern, responseText); len(instances) > 0 {
		found["mentioned_instances"] = instances
	}

	if regions := uniqueCaptures(regionPattern, responseText); len(regions) > 0 {
		found["mentioned_regions"] = regions
	}

	if len(found) == 0 {
		return found, nil
	}

	category := strings.ToLower(technology) + "_pricing_facts"
	if err := s.PutFacts(ctx, category, found); err != nil {
		return nil, err
	}
	return found, nil
}

// PricingFacts returns previously extracted pricing facts for a technology,
// or nil when none are stored.
func (s *Store) PricingFacts(ctx context.Context, technology string) (*Result, error) {
	if technology == "" {
		return nil, ErrEmptyCategory
	}
	return s.GetFacts(ctx, strings.ToLower(technology)+"_pricing_facts")
}

func captures(p *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range p.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func uniqueCaptures(p *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	for _, m := range p.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
