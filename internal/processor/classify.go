package processor

import "strings"

// Rule maps keywords to a content sub-type.
type Rule struct {
	Category string
	Keywords []string
}

// Classifier walks its rules in order; the first rule with a keyword found
// in any of the fields wins.
type Classifier struct {
	rules    []Rule
	fallback string
}

// NewClassifier lower-cases keywords once.
func NewClassifier(fallback string, rules ...Rule) Classifier {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		normalized = append(normalized, Rule{Category: r.Category, Keywords: kw})
	}
	return Classifier{rules: normalized, fallback: fallback}
}

// Classify returns the matching category or the fallback bucket.
func (c Classifier) Classify(fields ...string) string {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}

	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			for _, f := range lowered {
				if strings.Contains(f, kw) {
					return rule.Category
				}
			}
		}
	}
	return c.fallback
}

// DefaultClassifier buckets developer content.
func DefaultClassifier() Classifier {
	return NewClassifier("article",
		Rule{Category: "contest", Keywords: []string{"contest", "hackathon", "coding challenge", "competition"}},
		Rule{Category: "release", Keywords: []string{"release", "released", "changelog"}},
		Rule{Category: "tutorial", Keywords: []string{"tutorial", "how to", "guide", "introduction to"}},
		Rule{Category: "news", Keywords: []string{"announce", "news", "launch"}},
		Rule{Category: "discussion", Keywords: []string{"ask hn", "discussion", "question", "?"}},
	)
}
