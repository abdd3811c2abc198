package models

// Language identifies one of the two catalog languages.
type Language string

const (
	// LanguagePrimary is the language whose names are preferred for display.
	LanguagePrimary Language = "en"
	// LanguageSecondary is merged into primary entries by card id.
	LanguageSecondary Language = "ja"
)

// Languages returns the catalog languages in merge order.
func Languages() []Language {
	return []Language{LanguagePrimary, LanguageSecondary}
}

// MergedEntry is one catalog card, keyed by the id both languages share.
type MergedEntry struct {
	ID         int                    `json:"id"`
	Names      map[Language]string    `json:"names"`
	Aliases    []string               `json:"aliases"`
	Normalized string                 `json:"normalized"`
	Tokens     []string               `json:"tokens"`
	Raw        map[Language]RawRecord `json:"-"`
}

// Name returns the entry's name in lang, if that language supplied one.
func (e *MergedEntry) Name(lang Language) (string, bool) {
	name, ok := e.Names[lang]
	return name, ok && name != ""
}

// RawFor returns the provider record for lang.
func (e *MergedEntry) RawFor(lang Language) (RawRecord, bool) {
	raw, ok := e.Raw[lang]
	return raw, ok && raw != nil
}

// DisplayName picks the name shown for the entry: primary name, then
// secondary name, then the first alias. It returns "" when none exist.
func (e *MergedEntry) DisplayName() string {
	return e.DisplayNameOr("")
}

// DisplayNameOr is DisplayName with fallback used in place of the first alias.
// An empty fallback keeps the first-alias rule.
func (e *MergedEntry) DisplayNameOr(fallback string) string {
	if name, ok := e.Name(LanguagePrimary); ok {
		return name
	}
	if name, ok := e.Name(LanguageSecondary); ok {
		return name
	}
	if fallback != "" {
		return fallback
	}
	if len(e.Aliases) > 0 {
		return e.Aliases[0]
	}
	return ""
}

// CardDetail is the presentation-neutral view of one card in one language.
type CardDetail struct {
	ID          int      `json:"id"`
	Language    Language `json:"language"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TypeLine    string   `json:"type_line"`
	Attribute   string   `json:"attribute"`
	Level       string   `json:"level"`
	ATK         string   `json:"atk"`
	DEF         string   `json:"def"`
	ImageURL    string   `json:"image_url,omitempty"`
}
