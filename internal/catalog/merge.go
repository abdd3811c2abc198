// Package catalog merges the per-language card datasets into one id-keyed
// catalog and owns the process-wide store and image scratch directory.
package catalog

import (
	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/normalize"
)

// Merge combines primary and secondary records into one entry per card id.
// Records without an integer id are skipped, as are nameless records that
// would start a new entry. A nameless secondary record for a known id still
// contributes its aliases and raw data. Entries come back in first-seen
// order: primary ids first, then secondary-only ids.
func Merge(primary, secondary []models.RawRecord) []*models.MergedEntry {
	byID := make(map[int]*models.MergedEntry, len(primary))
	order := make([]int, 0, len(primary))

	for _, rec := range primary {
		id, name, ok := identity(rec)
		if !ok {
			continue
		}
		if _, exists := byID[id]; !exists {
			order = append(order, id)
		}
		byID[id] = newEntry(id, name, models.LanguagePrimary, rec)
	}

	for _, rec := range secondary {
		id, ok := recordID(rec)
		if !ok {
			continue
		}
		name, named := rec.Name()

		existing, found := byID[id]
		if !found {
			if !named {
				continue
			}
			order = append(order, id)
			byID[id] = newEntry(id, name, models.LanguageSecondary, rec)
			continue
		}

		existing.Aliases = unionAliases(existing.Aliases, rec.Aliases())
		existing.Raw[models.LanguageSecondary] = rec
		if named {
			existing.Names[models.LanguageSecondary] = name
			existing.Normalized = normalize.Normalize(existing.Normalized + " " + normalize.Normalize(name))
			existing.Tokens = normalize.Tokenize(existing.Normalized)
		}
	}

	entries := make([]*models.MergedEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, byID[id])
	}
	return entries
}

func recordID(rec models.RawRecord) (int, bool) {
	if rec == nil {
		return 0, false
	}
	return rec.ID()
}

func identity(rec models.RawRecord) (int, string, bool) {
	id, ok := recordID(rec)
	if !ok {
		return 0, "", false
	}
	name, ok := rec.Name()
	if !ok {
		return 0, "", false
	}
	return id, name, true
}

func newEntry(id int, name string, lang models.Language, rec models.RawRecord) *models.MergedEntry {
	norm := normalize.Normalize(name)
	return &models.MergedEntry{
		ID:         id,
		Names:      map[models.Language]string{lang: name},
		Aliases:    unionAliases(nil, rec.Aliases()),
		Normalized: norm,
		Tokens:     normalize.Tokenize(norm),
		Raw:        map[models.Language]models.RawRecord{lang: rec},
	}
}

// unionAliases appends the members of extra missing from base, keeping
// first-seen order.
func unionAliases(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, a := range list {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
