package region

import "strings"

// MatchReason tells which rule caused a trigger.
type MatchReason int

const (
	ReasonNone MatchReason = iota
	ReasonTarget
	ReasonCompare
)

func (r MatchReason) String() string {
	switch r {
	case ReasonTarget:
		return "target"
	case ReasonCompare:
		return "compare"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating one region for one cycle.
type Decision struct {
	Triggered bool
	Reason    MatchReason
}

// Normalize lowercases text, collapses every whitespace run to one space and
// trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContainsTarget reports whether target is a non-empty case-insensitive
// substring of text.
func ContainsTarget(text, target string) bool {
	if target == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(target))
}

// Decide evaluates r against the recognized primary text and, when comparison
// is enabled, the recognized comparison text. Blank primary text never
// triggers, and two blank captures are not considered equal.
func Decide(primary string, r *Region, comparison string) Decision {
	if r == nil || strings.TrimSpace(primary) == "" {
		return Decision{}
	}

	if !r.CompareEnabled {
		if ContainsTarget(primary, r.TargetText) {
			return Decision{Triggered: true, Reason: ReasonTarget}
		}
		return Decision{}
	}

	if nc := Normalize(comparison); nc != "" && Normalize(primary) == nc {
		return Decision{Triggered: true, Reason: ReasonCompare}
	}
	if !r.CompareTriggerOnly && ContainsTarget(primary, r.TargetText) {
		return Decision{Triggered: true, Reason: ReasonTarget}
	}
	return Decision{}
}

// Evaluate reports whether r triggers for the given texts.
func Evaluate(primary string, r *Region, comparison string) bool {
	return Decide(primary, r, comparison).Triggered
}
