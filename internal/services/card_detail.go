package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/codyseavey/card-lookup/internal/match"
	"github.com/codyseavey/card-lookup/internal/models"
)

// Resolution limits for the card command.
const (
	// MaxResolveScore is the weakest match Resolve accepts.
	MaxResolveScore     = 0.7
	maxDescriptionLen   = 1024
	descriptionEllipsis = "..."
)

var (
	ErrCardNotFound        = errors.New("card not found")
	ErrCardUnresolved      = errors.New("failed to resolve card")
	ErrCardDataUnavailable = errors.New("card data unavailable")
)

// ResolveOptions selects the language of the resolved card.
type ResolveOptions struct {
	// Language is the caller's locale, e.g. "ja" or "en-US".
	Language string
	// ForceSecondary always prefers secondary-language data.
	ForceSecondary bool
}

func (o ResolveOptions) wantsSecondary() bool {
	return o.ForceSecondary || strings.HasPrefix(strings.ToLower(o.Language), string(models.LanguageSecondary))
}

// Resolution is a resolved card with the match that found it.
type Resolution struct {
	Detail *models.CardDetail `json:"detail"`
	Match  models.MatchResult `json:"match"`
}

// Resolve looks query up and builds the card detail in the requested
// language, falling back to the other language when it has no data.
func (s *CardService) Resolve(ctx context.Context, query string, opts ResolveOptions) (*Resolution, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	res := s.FuzzyMatch(ctx, query, match.DefaultLimit)
	if !res.Found() || res.Best == "" || res.BestID == 0 || res.Score > MaxResolveScore {
		return nil, fmt.Errorf("%w: %q", ErrCardNotFound, query)
	}

	entry, ok := s.Get(res.BestID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrCardUnresolved, res.BestID)
	}

	detail, err := s.Detail(entry, opts, res.Best)
	if err != nil {
		return nil, err
	}
	return &Resolution{Detail: detail, Match: res}, nil
}

// Detail builds the card detail for entry. fallbackName is used when the
// chosen record carries no name.
func (s *CardService) Detail(entry *models.MergedEntry, opts ResolveOptions, fallbackName string) (*models.CardDetail, error) {
	raw, lang, ok := pickRecord(entry, opts.wantsSecondary())
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrCardDataUnavailable, entry.ID)
	}
	return buildDetail(entry.ID, raw, lang, fallbackName), nil
}

func pickRecord(entry *models.MergedEntry, secondary bool) (models.RawRecord, models.Language, bool) {
	order := []models.Language{models.LanguagePrimary, models.LanguageSecondary}
	if secondary {
		order[0], order[1] = order[1], order[0]
	}
	for _, lang := range order {
		if raw, ok := entry.RawFor(lang); ok {
			return raw, lang, true
		}
	}
	return nil, "", false
}

func buildDetail(id int, raw models.RawRecord, lang models.Language, fallbackName string) *models.CardDetail {
	d := &models.CardDetail{
		ID:          id,
		Language:    lang,
		Name:        fallbackName,
		Description: truncateDescription(raw.String("desc")),
		Attribute:   firstScalar(raw, "attribute", "attr"),
		Level:       firstScalar(raw, "level", "linkval"),
		ATK:         statValue(raw, "atk", "0"),
	}

	if name, ok := raw.Name(); ok {
		d.Name = name
	}

	if _, isList := raw["typeline"].([]any); isList {
		d.TypeLine = strings.Join(raw.Strings("typeline"), " / ")
	} else {
		d.TypeLine = raw.String("type")
	}

	if d.Level == "" {
		d.Level = "-"
	}

	defMissing := "0"
	if raw.Has("linkval") {
		defMissing = "—"
	}
	d.DEF = statValue(raw, "def", defMissing)

	if images := raw.Objects("card_images"); len(images) > 0 {
		d.ImageURL = images[0].String("image_url")
	}

	return d
}

func truncateDescription(desc string) string {
	runes := []rune(desc)
	if len(runes) <= maxDescriptionLen {
		return desc
	}
	return string(runes[:maxDescriptionLen-len(descriptionEllipsis)]) + descriptionEllipsis
}

// statValue formats ATK/DEF: -1 is the unknown "?" stat.
func statValue(raw models.RawRecord, key, missing string) string {
	if n, ok := raw.Int(key); ok && n == -1 {
		return "?"
	}
	if v, ok := scalar(raw[key]); ok {
		return v
	}
	return missing
}

func firstScalar(raw models.RawRecord, keys ...string) string {
	for _, key := range keys {
		if v, ok := scalar(raw[key]); ok {
			return v
		}
	}
	return ""
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// CardImage downloads the card's image into the scratch directory as
// "<id>.jpg" and returns the path.
func (s *CardService) CardImage(ctx context.Context, detail *models.CardDetail) (string, error) {
	if detail == nil || detail.ImageURL == "" {
		return "", fmt.Errorf("%w: no image", ErrCardDataUnavailable)
	}
	return s.FetchAndCacheImage(ctx, detail.ImageURL, fmt.Sprintf("%d.jpg", detail.ID))
}
