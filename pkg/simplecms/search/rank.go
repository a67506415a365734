package search

import (
	"sort"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Weight values of the A..D classes, matching the Postgres ts_rank defaults.
var weightValues = map[simplecms.Weight]float64{
	simplecms.WeightA: 1.0,
	simplecms.WeightB: 0.4,
	simplecms.WeightC: 0.2,
	simplecms.WeightD: 0.1,
}

// WeightValue returns the numeric weight of a class.
func WeightValue(w simplecms.Weight) float64 {
	return weightValues[w]
}

// Rank scores v against q. ok is false when v does not satisfy q.
//
// A term's occurrences are taken strongest first and the i-th contributes
// weight/(i+1)^2. The series is bounded by weight*pi^2/6, so a single title
// occurrence always outranks any number of summary or body occurrences.
func Rank(v Vector, q simplecms.Query) (score float64, ok bool) {
	if q.IsEmpty() {
		return 0, false
	}
	for _, clause := range q.Clauses {
		positive := false
		matched := false
		for _, term := range clause {
			weights := occurrences(v, term.Tokens)
			if term.Negated {
				if len(weights) > 0 {
					return 0, false
				}
				continue
			}
			positive = true
			if len(weights) == 0 {
				continue
			}
			matched = true
			score += termScore(weights)
		}
		if positive && !matched {
			return 0, false
		}
	}
	return score, true
}

func termScore(weights []simplecms.Weight) float64 {
	sort.Slice(weights, func(i, j int) bool { return weights[i] > weights[j] })
	var s float64
	for i, w := range weights {
		d := float64(i + 1)
		s += WeightValue(w) / (d * d)
	}
	return s
}

// occurrences returns the weight of every place tokens appear consecutively.
func occurrences(v Vector, tokens []string) []simplecms.Weight {
	if len(tokens) == 0 {
		return nil
	}
	first := v[tokens[0]]
	if len(tokens) == 1 {
		out := make([]simplecms.Weight, len(first))
		for i, p := range first {
			out[i] = p.Weight
		}
		return out
	}

	rest := make([]map[int]bool, len(tokens)-1)
	for k, tok := range tokens[1:] {
		postings := v[tok]
		if len(postings) == 0 {
			return nil
		}
		rest[k] = make(map[int]bool, len(postings))
		for _, p := range postings {
			rest[k][p.Pos] = true
		}
	}

	var out []simplecms.Weight
	for _, p := range first {
		hit := true
		for k := range rest {
			if !rest[k][p.Pos+k+1] {
				hit = false
				break
			}
		}
		if hit {
			out = append(out, p.Weight)
		}
	}
	return out
}

// RequiredLexemes returns, per clause with a positive alternative, the
// lexemes of which a matching item must contain at least one. Stores use it
// to narrow candidates through their postings before ranking.
func RequiredLexemes(q simplecms.Query) [][]string {
	var out [][]string
	for _, clause := range q.Clauses {
		var lexemes []string
		for _, term := range clause {
			if !term.Negated && len(term.Tokens) > 0 {
				lexemes = append(lexemes, term.Tokens[0])
			}
		}
		if len(lexemes) > 0 {
			out = append(out, lexemes)
		}
	}
	return out
}

// SortMatches orders per-type matches best first: score, then newer
// creation time, then identifier.
func SortMatches(matches []simplecms.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Item.Created().Equal(b.Item.Created()) {
			return a.Item.Created().After(b.Item.Created())
		}
		return a.Item.ItemID().String() < b.Item.ItemID().String()
	})
}
