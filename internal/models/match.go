package models

import (
	"encoding/json"
	"math"
)

// Score values reported by the exact, prefix and substring tiers.
const (
	ScoreExact          = 0
	ScorePrefix         = 0.01
	ScoreSubstring      = 0.02
	ScoreAliasSubstring = 0.03
)

// MatchTier names the stage of the matcher that produced a result.
type MatchTier string

const (
	TierNone      MatchTier = "none"
	TierExact     MatchTier = "exact"
	TierPrefix    MatchTier = "prefix"
	TierSubstring MatchTier = "substring"
	TierAlias     MatchTier = "alias"
	TierFuzzy     MatchTier = "fuzzy"
)

// MatchResult is the outcome of a fuzzy lookup. Score is 0 for an exact
// match, grows as the match weakens and is +Inf when nothing matched.
//
// A found result can still have an empty Best when the matched entry has no
// name or alias to display; it then encodes as "best": null next to a set
// "best_id". Callers that need a name must check Best as well as Found.
type MatchResult struct {
	Best       string
	BestID     int
	Score      float64
	Candidates []string
	Tier       MatchTier
}

// NoMatch returns the sentinel result for queries that match nothing.
func NoMatch() MatchResult {
	return MatchResult{
		Score:      math.Inf(1),
		Candidates: []string{},
		Tier:       TierNone,
	}
}

// Found reports whether the result identifies a catalog entry.
func (r MatchResult) Found() bool {
	return !math.IsInf(r.Score, 1)
}

// MarshalJSON encodes the sentinel fields as null since JSON has no Infinity.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	type payload struct {
		Best       *string   `json:"best"`
		BestID     *int      `json:"best_id"`
		Score      *float64  `json:"score"`
		Candidates []string  `json:"candidates"`
		Tier       MatchTier `json:"tier"`
	}

	p := payload{Candidates: r.Candidates, Tier: r.Tier}
	if p.Candidates == nil {
		p.Candidates = []string{}
	}
	if r.Found() {
		best, id, score := r.Best, r.BestID, r.Score
		if best != "" {
			p.Best = &best
		}
		p.BestID = &id
		p.Score = &score
	}
	return json.Marshal(p)
}
