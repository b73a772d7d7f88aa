// Package prompt turns UI selections into the single instruction string sent
// to an image provider.
//
// Every composer reduces its selections to an ordered list of clauses and
// hands them to Build, which owns ordering, inclusion and punctuation. Build
// is pure: the same base and clauses always produce the same bytes, which is
// what makes regeneration by item id reproducible.
package prompt

import (
	"sort"
	"strings"
)

// Fallback is returned when nothing at all was selected. Providers reject
// empty prompts.
const Fallback = "improve quality without changing content"

// Sentinel selection values that never produce a clause.
const (
	NoPreference = "none"
	Random       = "random"
)

// Group fixes where a clause lands in the final prompt.
type Group int

const (
	GroupShot Group = iota
	GroupSubject
	GroupScene
	GroupCapture
	GroupEffects
	GroupAspect
	GroupNegative
)

// listed groups are descriptor runs joined with ", " inside one sentence.
func (g Group) listed() bool {
	return g == GroupScene || g == GroupCapture || g == GroupEffects
}

// Clause is one optional piece of the prompt.
type Clause struct {
	Group   Group
	Enabled bool
	Text    string
}

// On is a shorthand for an enabled clause.
func On(g Group, text string) Clause {
	return Clause{Group: g, Enabled: true, Text: text}
}

// When returns a clause enabled only when cond holds.
func When(cond bool, g Group, text string) Clause {
	return Clause{Group: g, Enabled: cond, Text: text}
}

func (c Clause) included() bool {
	if !c.Enabled {
		return false
	}
	text := strings.TrimSpace(c.Text)
	return text != "" && text != NoPreference && text != Random
}

// Build joins base and the included clauses in group order. Sentences are
// separated by ". ", descriptor groups (scene, capture, effects) that follow
// each other collapse into one comma list, and negative clauses become a
// trailing "Negative prompt: ..." sentence.
func Build(base string, clauses []Clause) string {
	return BuildOr(base, clauses, Fallback)
}

// BuildOr is Build with a caller-chosen fallback.
func BuildOr(base string, clauses []Clause, fallback string) string {
	picked := make([]Clause, 0, len(clauses))
	for _, c := range clauses {
		if c.included() {
			picked = append(picked, c)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Group < picked[j].Group })

	var segments []string
	if b := tidy(base); b != "" {
		segments = append(segments, b)
	}

	var list, negatives []string
	flush := func() {
		if len(list) > 0 {
			segments = append(segments, strings.Join(list, ", "))
			list = nil
		}
	}
	for _, c := range picked {
		text := tidy(c.Text)
		if text == "" {
			continue
		}
		switch {
		case c.Group == GroupNegative:
			flush()
			negatives = append(negatives, splitTerms(text)...)
		case c.Group.listed():
			list = append(list, text)
		default:
			flush()
			segments = append(segments, text)
		}
	}
	flush()
	if len(negatives) > 0 {
		segments = append(segments, "Negative prompt: "+strings.Join(negatives, ", "))
	}

	if len(segments) == 0 {
		return fallback
	}
	return strings.Join(segments, ". ")
}

// tidy trims whitespace and trailing separators so joining never doubles them.
func tidy(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".,; ")
}

func splitTerms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
