// Package selector scores tool descriptors against free-text queries.
//
// Scoring is a sum of independent signals - trigger keyword overlap
// weighted by confidence, literal example containment, anti-pattern
// penalties, and advisory performance fit - each clamped so no single
// signal dominates. Scores floor at zero; a negative total is a
// non-candidate, never an error. Selection is deterministic: ties break
// by descriptor id.
package selector

import (
	"sort"
	"strings"

	"github.com/zero-day-ai/aitool/descriptor"
)

// Signal weights and clamps. Trigger overlap is the primary signal;
// the rest nudge the ranking without being able to dominate it.
const (
	triggerClamp       = 3.0
	exampleBonus       = 0.5
	exampleClamp       = 1.5
	antiPatternPenalty = 0.75
	performanceWeight  = 0.25

	// antiPatternOverlap is the fraction of a scenario's words that
	// must appear in the query before the penalty applies.
	antiPatternOverlap = 0.5
)

// Context carries optional selection constraints.
type Context struct {
	// MaxLatencyMS, when positive, scores descriptors by whether their
	// advisory p95 latency fits within it.
	MaxLatencyMS int64
}

// Candidate pairs a descriptor with its score for one query. It is
// ephemeral: produced per query, never persisted.
type Candidate struct {
	Descriptor *descriptor.Descriptor
	Score      float64
}

// Score rates how well a descriptor's usage guidance matches a query.
// The result is always >= 0.
func Score(d *descriptor.Descriptor, query string, ctx Context) float64 {
	queryWords := wordSet(query)
	lowerQuery := strings.ToLower(query)

	var triggers, examples float64
	for _, trig := range d.Guidance.Triggers {
		keywords := strings.Fields(strings.ToLower(trig.Trigger))
		if len(keywords) > 0 {
			matched := 0
			for _, kw := range keywords {
				if queryWords[kw] {
					matched++
				}
			}
			triggers += float64(matched) / float64(len(keywords)) * trig.Confidence.Weight()
		}

		for _, example := range trig.Examples {
			if example != "" && strings.Contains(lowerQuery, strings.ToLower(example)) {
				examples += exampleBonus
			}
		}
	}
	if triggers > triggerClamp {
		triggers = triggerClamp
	}
	if examples > exampleClamp {
		examples = exampleClamp
	}

	var penalty float64
	for _, anti := range d.Guidance.AntiPatterns {
		words := strings.Fields(strings.ToLower(anti.Scenario))
		if len(words) == 0 {
			continue
		}
		matched := 0
		for _, w := range words {
			if queryWords[w] {
				matched++
			}
		}
		if float64(matched)/float64(len(words)) >= antiPatternOverlap {
			penalty += antiPatternPenalty
		}
	}

	var performance float64
	if ctx.MaxLatencyMS > 0 && d.Hints != nil && d.Hints.P95LatencyMS > 0 {
		if d.Hints.P95LatencyMS <= ctx.MaxLatencyMS {
			performance = performanceWeight
		} else {
			performance = -performanceWeight
		}
	}

	score := triggers + examples - penalty + performance
	if score < 0 {
		return 0
	}
	return score
}

// SelectBest returns the highest-scoring candidate for the query, or
// ok=false when every candidate scores zero. Ties break by descriptor
// id ascending for determinism.
func SelectBest(descriptors []*descriptor.Descriptor, query string, ctx Context) (Candidate, bool) {
	ranked := Suggest(descriptors, query, ctx, 1)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// Suggest returns the top-k candidates by score, excluding zero scores.
// Ordering is score descending, then descriptor id ascending.
func Suggest(descriptors []*descriptor.Descriptor, query string, ctx Context, topK int) []Candidate {
	if topK <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(descriptors))
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if s := Score(d, query, ctx); s > 0 {
			candidates = append(candidates, Candidate{Descriptor: d, Score: s})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Descriptor.ID < candidates[j].Descriptor.ID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// wordSet lowercases and splits text into a membership set.
func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	return set
}
