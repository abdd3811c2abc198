package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/normalize"
)

// Scored index defaults.
const (
	DefaultFieldThreshold     = 0.33
	DefaultMinMatchCharLength = 2
)

// epsilon stands in for a zero field score so the weighted product stays positive.
const epsilon = 0x1p-52

// Field is one searchable key of an index item.
type Field string

const (
	FieldPrimaryName   Field = "primary_name"
	FieldSecondaryName Field = "secondary_name"
	FieldAliases       Field = "aliases"
	FieldNormalized    Field = "normalized"
)

// FieldWeights assigns the relative importance of each field. Weights are
// normalized to sum to 1 when the index is built.
type FieldWeights map[Field]float64

// DefaultFieldWeights ranks primary name > secondary name > aliases >
// combined normalized text.
func DefaultFieldWeights() FieldWeights {
	return FieldWeights{
		FieldPrimaryName:   0.55,
		FieldSecondaryName: 0.45,
		FieldAliases:       0.25,
		FieldNormalized:    0.10,
	}
}

// IndexOptions configures the scored index.
type IndexOptions struct {
	Weights            FieldWeights
	Threshold          float64 // max per-field score that still counts as a match
	MinMatchCharLength int     // patterns shorter than this never match
}

func (o IndexOptions) withDefaults() IndexOptions {
	if len(o.Weights) == 0 {
		o.Weights = DefaultFieldWeights()
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultFieldThreshold
	}
	if o.MinMatchCharLength <= 0 {
		o.MinMatchCharLength = DefaultMinMatchCharLength
	}
	return o
}

// Item is the index's snapshot of one catalog entry.
type Item struct {
	ID            int
	PrimaryName   string
	SecondaryName string
	Aliases       []string
	Normalized    string

	fields []indexedField
}

// Display applies the display-name fallback chain to the item.
func (it *Item) Display() string {
	switch {
	case it.PrimaryName != "":
		return it.PrimaryName
	case it.SecondaryName != "":
		return it.SecondaryName
	case len(it.Aliases) > 0:
		return it.Aliases[0]
	}
	return ""
}

type indexedField struct {
	field  Field
	values []fieldValue
}

type fieldValue struct {
	text  string
	runes []rune
	norm  float64
}

// Hit is one scored search result.
type Hit struct {
	Item  *Item
	Score float64
	index int
}

// Index is an immutable scored search index over a catalog snapshot.
type Index struct {
	items   []*Item
	weights map[Field]float64
	opts    IndexOptions
}

// BuildIndex snapshots entries into a new index.
func BuildIndex(entries []*models.MergedEntry, opts IndexOptions) *Index {
	opts = opts.withDefaults()

	total := 0.0
	for _, w := range opts.Weights {
		total += w
	}
	weights := make(map[Field]float64, len(opts.Weights))
	for f, w := range opts.Weights {
		weights[f] = w / total
	}

	items := make([]*Item, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		primary, _ := e.Name(models.LanguagePrimary)
		secondary, _ := e.Name(models.LanguageSecondary)
		it := &Item{
			ID:            e.ID,
			PrimaryName:   primary,
			SecondaryName: secondary,
			Aliases:       e.Aliases,
			Normalized:    e.Normalized,
		}
		it.fields = []indexedField{
			{field: FieldPrimaryName, values: fieldValues(primary)},
			{field: FieldSecondaryName, values: fieldValues(secondary)},
			{field: FieldAliases, values: fieldValues(e.Aliases...)},
			{field: FieldNormalized, values: fieldValues(e.Normalized)},
		}
		items = append(items, it)
	}

	return &Index{items: items, weights: weights, opts: opts}
}

func fieldValues(raw ...string) []fieldValue {
	values := make([]fieldValue, 0, len(raw))
	for _, r := range raw {
		text := normalize.Normalize(r)
		if text == "" {
			continue
		}
		values = append(values, fieldValue{
			text:  text,
			runes: []rune(text),
			norm:  fieldNorm(text),
		})
	}
	return values
}

// fieldNorm shortens the reach of long fields: 1/sqrt(tokens), rounded to
// three decimals.
func fieldNorm(text string) float64 {
	tokens := strings.Count(text, " ") + 1
	return math.Round(1000/math.Sqrt(float64(tokens))) / 1000
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.items)
}

// Search scores every item against the normalized pattern and returns up to
// limit hits, best first. Equal scores keep catalog order.
func (idx *Index) Search(pattern string, limit int) []Hit {
	if idx == nil || limit <= 0 {
		return nil
	}
	patRunes := []rune(pattern)
	if len(patRunes) < idx.opts.MinMatchCharLength {
		return nil
	}

	hits := make([]Hit, 0)
	for i, it := range idx.items {
		score, ok := idx.scoreItem(it, pattern, patRunes)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Item: it, Score: score, index: i})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score < hits[b].Score
		}
		return hits[a].index < hits[b].index
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (idx *Index) scoreItem(it *Item, pattern string, patRunes []rune) (float64, bool) {
	total := 1.0
	matched := false

	for _, f := range it.fields {
		weight := idx.weights[f.field]
		if weight == 0 {
			continue
		}

		best, bestNorm, ok := 0.0, 0.0, false
		for _, v := range f.values {
			s, hit := idx.scoreValue(pattern, patRunes, v)
			if !hit {
				continue
			}
			if !ok || s < best {
				best, bestNorm, ok = s, v.norm, true
			}
		}
		if !ok {
			continue
		}

		matched = true
		total *= math.Pow(math.Max(best, epsilon), weight*bestNorm)
	}

	return total, matched
}

// scoreValue scores one field value in [0,1], 0 being a verbatim occurrence.
// It takes the better of two signals: edit distance of the pattern against
// its best-aligned substring of the value, and how much of the value a
// subsequence match of the pattern covers.
func (idx *Index) scoreValue(pattern string, patRunes []rune, v fieldValue) (float64, bool) {
	if strings.Contains(v.text, pattern) {
		return 0, true
	}

	score := float64(substringDistance(patRunes, v.runes)) / float64(len(patRunes))

	if rank := fuzzy.RankMatchNormalizedFold(pattern, v.text); rank >= 0 {
		coverage := float64(rank) / float64(utf8.RuneCountInString(v.text))
		score = math.Min(score, coverage)
	}

	return score, score <= idx.opts.Threshold
}

// substringDistance is the minimum edit distance between p and any substring
// of t.
func substringDistance(p, t []rune) int {
	prev := make([]int, len(p)+1)
	cur := make([]int, len(p)+1)
	for i := range prev {
		prev[i] = i
	}

	best := prev[len(p)]
	for _, tc := range t {
		cur[0] = 0
		for i := 1; i <= len(p); i++ {
			cost := 1
			if p[i-1] == tc {
				cost = 0
			}
			cur[i] = min(prev[i-1]+cost, prev[i]+1, cur[i-1]+1)
		}
		if cur[len(p)] < best {
			best = cur[len(p)]
		}
		prev, cur = cur, prev
	}
	return best
}
