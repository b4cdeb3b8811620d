package guardrail

import "strings"

// Evaluator answers whether a workspace name matches any protected pattern.
// Patterns are glob-style: `*` matches any substring and matching is
// case-insensitive. An empty pattern set is a valid, permissive
// configuration.
type Evaluator struct {
	patterns []string
}

func NewEvaluator(patterns []string) *Evaluator {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Evaluator{patterns: normalized}
}

// Patterns returns the normalized pattern set, in evaluation order.
func (e *Evaluator) Patterns() []string {
	out := make([]string, len(e.patterns))
	copy(out, e.patterns)
	return out
}

// Protected reports whether name matches any protected pattern.
func (e *Evaluator) Protected(name string) bool {
	name = strings.ToLower(name)
	for _, p := range e.patterns {
		if match(name, p) {
			return true
		}
	}
	return false
}

// match implements `*`-substring globbing: segments between stars must
// appear in order, the first anchored at the start and the last at the end.
func match(name, pattern string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return name == pattern
	}

	if first := segments[0]; first != "" {
		if !strings.HasPrefix(name, first) {
			return false
		}
		name = name[len(first):]
	}

	last := segments[len(segments)-1]
	if last != "" {
		if !strings.HasSuffix(name, last) {
			return false
		}
		name = name[:len(name)-len(last)]
	}

	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(name, seg)
		if idx < 0 {
			return false
		}
		name = name[idx+len(seg):]
	}
	return true
}
