package intent

import (
	"fmt"
	"strings"

	"github.com/shahar-caura/supportintent/internal/taxonomy"
)

// Resolver is a deterministic keyword classifier used when the remote model
// cannot produce an answer. Rules are evaluated in slice order and the first
// rule with any keyword contained in the text wins.
type Resolver struct {
	rules []taxonomy.FallbackRule
	def   taxonomy.Pair
}

// NewResolver creates a Resolver. The rules slice is copied.
func NewResolver(rules []taxonomy.FallbackRule, def taxonomy.Pair) *Resolver {
	r := &Resolver{
		rules: make([]taxonomy.FallbackRule, len(rules)),
		def:   def,
	}
	for i, rule := range rules {
		kw := make([]string, len(rule.Keywords))
		for j, k := range rule.Keywords {
			kw[j] = strings.ToLower(k)
		}
		r.rules[i] = taxonomy.FallbackRule{Primary: rule.Primary, Secondary: rule.Secondary, Keywords: kw}
	}
	return r
}

// Resolve classifies req without calling the remote model. It never fails.
// cause is the error that triggered the fallback and is quoted in Reasoning.
func (r *Resolver) Resolve(req Request, cause error) Result {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	if rule, ok := r.match(req.History + " " + req.Message); ok {
		return Result{
			Primary:   rule.Primary,
			Secondary: rule.Secondary,
			Reasoning: fmt.Sprintf("rule-based fallback after error: %s", reason),
			Source:    SourceFallback,
		}
	}

	return Result{
		Primary:   r.def.Primary,
		Secondary: r.def.Secondary,
		Reasoning: fmt.Sprintf("fallback classification used due to error: %s", reason),
		Source:    SourceFallback,
	}
}

func (r *Resolver) match(text string) (taxonomy.FallbackRule, bool) {
	text = strings.ToLower(text)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule, true
			}
		}
	}
	return taxonomy.FallbackRule{}, false
}
