package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/codyseavey/card-lookup/internal/catalog"
	"github.com/codyseavey/card-lookup/internal/models"
)

type fakeCardProvider struct {
	mu      sync.Mutex
	records map[models.Language][]models.RawRecord
	images  map[string][]byte
	fetches int
}

func (f *fakeCardProvider) FetchRecords(_ context.Context, lang models.Language) ([]models.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.records[lang], nil
}

func (f *fakeCardProvider) FetchBinary(_ context.Context, url string) (int, []byte, error) {
	data, ok := f.images[url]
	if !ok {
		return 404, []byte("not found"), nil
	}
	return 200, data, nil
}

const darkMagicianImage = "https://images.example.com/cards/46986414.jpg"

func testCardProvider() *fakeCardProvider {
	return &fakeCardProvider{
		records: map[models.Language][]models.RawRecord{
			models.LanguagePrimary: {
				{
					"id": 46986414, "name": "Dark Magician", "type": "Normal Monster",
					"typeline": []any{"Spellcaster", "Normal"}, "desc": "The ultimate wizard in terms of attack and defense.",
					"attribute": "DARK", "level": 7, "atk": 2500, "def": 2100,
					"card_images": []any{map[string]any{"image_url": darkMagicianImage}},
				},
				{
					"id": 89631139, "name": "Blue-Eyes White Dragon", "type": "Normal Monster",
					"attribute": "LIGHT", "level": 8, "atk": 3000, "def": 2500,
				},
				{
					"id": 1861629, "name": "Decode Talker", "type": "Link Monster",
					"attribute": "DARK", "linkval": 3, "atk": 2300,
				},
			},
			models.LanguageSecondary: {
				{
					"id": 46986414, "name": "ブラック・マジシャン", "type": "通常モンスター",
					"desc": "魔法使いとしては、攻撃力・守備力ともに最高クラス。",
					"attr": "闇", "level": 7, "atk": 2500, "def": 2100,
				},
				{
					"id": 10000, "name": "召喚僧サモンプリースト", "attr": "闇", "level": 4, "atk": 800, "def": -1,
				},
			},
		},
		images: map[string][]byte{darkMagicianImage: []byte("jpeg")},
	}
}

func newTestCardService(t *testing.T) (*CardService, *fakeCardProvider) {
	t.Helper()
	provider := testCardProvider()
	return NewCardService(provider, CardServiceConfig{ScratchDir: t.TempDir()}), provider
}

func TestCardService_FuzzyMatchLoadsCatalog(t *testing.T) {
	svc, provider := newTestCardService(t)

	res := svc.FuzzyMatch(context.Background(), "dark magician", 0)
	if res.BestID != 46986414 || res.Score != 0 {
		t.Fatalf("expected exact match on Dark Magician, got %+v", res)
	}

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if provider.fetches != 2 {
		t.Errorf("expected 2 fetches, got %d", provider.fetches)
	}
	if got := len(svc.All()); got != 4 {
		t.Errorf("expected 4 merged entries, got %d", got)
	}
}

func TestCardService_Status(t *testing.T) {
	svc, _ := newTestCardService(t)

	before := svc.Status()
	if before.State != models.CatalogUninitialized || before.IndexBuiltAt != nil {
		t.Errorf("unexpected status before load: %+v", before)
	}

	svc.FuzzyMatch(context.Background(), "blue eyes", 8)

	after := svc.Status()
	if after.State != models.CatalogLoaded {
		t.Errorf("expected loaded, got %s", after.State)
	}
	if after.Entries != 4 || after.IndexSize != 4 {
		t.Errorf("expected 4 entries and index size 4, got %d and %d", after.Entries, after.IndexSize)
	}
	if after.RawRecords[models.LanguagePrimary] != 3 || after.RawRecords[models.LanguageSecondary] != 2 {
		t.Errorf("unexpected raw record counts: %v", after.RawRecords)
	}
	if after.IndexBuiltAt == nil || after.LoadedAt == nil {
		t.Error("expected load and index timestamps")
	}
}

func TestCardService_Warm(t *testing.T) {
	svc, provider := newTestCardService(t)

	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	status := svc.Status()
	if status.IndexSize != 4 || status.IndexBuiltAt == nil {
		t.Errorf("expected a built index of 4 entries, got %+v", status)
	}

	svc.FuzzyMatch(context.Background(), "decode talker", 8)
	if provider.fetches != 2 {
		t.Errorf("expected warm load to be reused, got %d fetches", provider.fetches)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cold, _ := newTestCardService(t)
	if err := cold.Warm(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if cold.Status().State != models.CatalogUninitialized {
		t.Errorf("cancelled warm should leave the catalog unloaded, got %s", cold.Status().State)
	}
}

func TestResolve_Languages(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		opts     ResolveOptions
		wantLang models.Language
		wantName string
	}{
		{"default locale", "Dark Magician", ResolveOptions{}, models.LanguagePrimary, "Dark Magician"},
		{"english locale", "dark magician", ResolveOptions{Language: "en-US"}, models.LanguagePrimary, "Dark Magician"},
		{"japanese locale", "dark magician", ResolveOptions{Language: "ja"}, models.LanguageSecondary, "ブラック・マジシャン"},
		{"forced secondary", "ブラック・マジシャン", ResolveOptions{Language: "en-GB", ForceSecondary: true}, models.LanguageSecondary, "ブラック・マジシャン"},
		{"secondary falls back to primary", "blue eyes", ResolveOptions{ForceSecondary: true}, models.LanguagePrimary, "Blue-Eyes White Dragon"},
		{"primary falls back to secondary", "召喚僧", ResolveOptions{}, models.LanguageSecondary, "召喚僧サモンプリースト"},
	}

	svc, _ := newTestCardService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Resolve(context.Background(), tt.query, tt.opts)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.query, err)
			}
			if res.Detail.Language != tt.wantLang {
				t.Errorf("expected language %s, got %s", tt.wantLang, res.Detail.Language)
			}
			if res.Detail.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, res.Detail.Name)
			}
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	svc, _ := newTestCardService(t)

	for _, q := range []string{"", "   ", "zzzzqqqqxxxx"} {
		if _, err := svc.Resolve(context.Background(), q, ResolveOptions{}); !errors.Is(err, ErrCardNotFound) {
			t.Errorf("Resolve(%q): expected ErrCardNotFound, got %v", q, err)
		}
	}
}

func TestResolve_RejectsZeroID(t *testing.T) {
	provider := &fakeCardProvider{records: map[models.Language][]models.RawRecord{
		models.LanguagePrimary: {{"id": 0, "name": "Placeholder Token", "atk": 0, "def": 0}},
	}}
	svc := NewCardService(provider, CardServiceConfig{ScratchDir: t.TempDir()})

	res := svc.FuzzyMatch(context.Background(), "placeholder token", 8)
	if !res.Found() || res.BestID != 0 {
		t.Fatalf("expected an exact match on id 0, got %+v", res)
	}
	if _, err := svc.Resolve(context.Background(), "placeholder token", ResolveOptions{}); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound for id 0, got %v", err)
	}
}

func TestResolve_RejectsWeakMatch(t *testing.T) {
	svc, _ := newTestCardService(t)
	query := "bxxe exes wxxte dxxgon"

	res := svc.FuzzyMatch(context.Background(), query, 8)
	if !res.Found() || res.Score <= MaxResolveScore {
		t.Fatalf("expected a weak match above %v, got %+v", MaxResolveScore, res)
	}

	if _, err := svc.Resolve(context.Background(), query, ResolveOptions{}); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestDetail_NoRecords(t *testing.T) {
	svc, _ := newTestCardService(t)
	entry := &models.MergedEntry{ID: 5, Names: map[models.Language]string{models.LanguagePrimary: "Ghost"}}

	if _, err := svc.Detail(entry, ResolveOptions{}, "Ghost"); !errors.Is(err, ErrCardDataUnavailable) {
		t.Errorf("expected ErrCardDataUnavailable, got %v", err)
	}
}

func TestBuildDetail(t *testing.T) {
	longDesc := strings.Repeat("あ", 1100)

	tests := []struct {
		name  string
		raw   models.RawRecord
		check func(t *testing.T, d *models.CardDetail)
	}{
		{
			name: "typeline joined",
			raw:  models.RawRecord{"typeline": []any{"Spellcaster", "Normal"}, "type": "Normal Monster"},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.TypeLine != "Spellcaster / Normal" {
					t.Errorf("expected joined typeline, got %q", d.TypeLine)
				}
			},
		},
		{
			name: "type fallback",
			raw:  models.RawRecord{"type": "Spell Card"},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.TypeLine != "Spell Card" {
					t.Errorf("expected type fallback, got %q", d.TypeLine)
				}
			},
		},
		{
			name: "fallback name and defaults",
			raw:  models.RawRecord{},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.Name != "Fallback" || d.Level != "-" || d.ATK != "0" || d.DEF != "0" || d.Attribute != "" {
					t.Errorf("unexpected defaults: %+v", d)
				}
			},
		},
		{
			name: "attr fallback",
			raw:  models.RawRecord{"attr": "光"},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.Attribute != "光" {
					t.Errorf("expected attr fallback, got %q", d.Attribute)
				}
			},
		},
		{
			name: "unknown stats",
			raw:  models.RawRecord{"atk": float64(-1), "def": float64(-1), "level": float64(4)},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.ATK != "?" || d.DEF != "?" || d.Level != "4" {
					t.Errorf("expected ?/? at level 4, got %s/%s at %s", d.ATK, d.DEF, d.Level)
				}
			},
		},
		{
			name: "link monster",
			raw:  models.RawRecord{"linkval": float64(3), "atk": float64(2300)},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.Level != "3" || d.ATK != "2300" || d.DEF != "—" {
					t.Errorf("unexpected link stats: level %s atk %s def %s", d.Level, d.ATK, d.DEF)
				}
			},
		},
		{
			name: "long description truncated",
			raw:  models.RawRecord{"desc": longDesc},
			check: func(t *testing.T, d *models.CardDetail) {
				runes := []rune(d.Description)
				if len(runes) != 1024 || !strings.HasSuffix(d.Description, "...") {
					t.Errorf("expected 1024 runes ending in ..., got %d", len(runes))
				}
			},
		},
		{
			name: "first image",
			raw: models.RawRecord{"card_images": []any{
				map[string]any{"image_url": "https://example.com/a.jpg"},
				map[string]any{"image_url": "https://example.com/b.jpg"},
			}},
			check: func(t *testing.T, d *models.CardDetail) {
				if d.ImageURL != "https://example.com/a.jpg" {
					t.Errorf("expected first image, got %q", d.ImageURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, buildDetail(7, tt.raw, models.LanguagePrimary, "Fallback"))
		})
	}
}

func TestBuildDetail_ShortDescriptionKept(t *testing.T) {
	desc := strings.Repeat("x", 1024)
	d := buildDetail(1, models.RawRecord{"desc": desc}, models.LanguagePrimary, "")
	if d.Description != desc {
		t.Errorf("description of exactly 1024 runes should be kept, got %d runes", len([]rune(d.Description)))
	}
}

func TestCardImage(t *testing.T) {
	svc, _ := newTestCardService(t)

	res, err := svc.Resolve(context.Background(), "dark magician", ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	path, err := svc.CardImage(context.Background(), res.Detail)
	if err != nil {
		t.Fatalf("CardImage: %v", err)
	}
	if path != filepath.Join(svc.ScratchDir(), "46986414.jpg") {
		t.Errorf("unexpected image path %s", path)
	}
	if data, _ := os.ReadFile(path); string(data) != "jpeg" {
		t.Errorf("unexpected image contents %q", data)
	}

	missing := &models.CardDetail{ID: 2, ImageURL: "https://images.example.com/cards/missing.jpg"}
	var statusErr *catalog.HTTPStatusError
	if _, err := svc.CardImage(context.Background(), missing); !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}

	if _, err := svc.CardImage(context.Background(), &models.CardDetail{ID: 3}); !errors.Is(err, ErrCardDataUnavailable) {
		t.Errorf("expected ErrCardDataUnavailable without an image URL, got %v", err)
	}
}

func TestCardService_PruneImages(t *testing.T) {
	svc, _ := newTestCardService(t)
	if err := os.WriteFile(filepath.Join(svc.ScratchDir(), "fresh.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if removed := svc.PruneImages(context.Background()); removed != 0 {
		t.Errorf("expected nothing pruned, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(svc.ScratchDir(), "fresh.jpg")); err != nil {
		t.Errorf("fresh file should survive: %v", err)
	}
}

func ExampleCardService_Resolve() {
	svc := NewCardService(testCardProvider(), CardServiceConfig{ScratchDir: os.TempDir()})
	res, err := svc.Resolve(context.Background(), "Blue Eyes", ResolveOptions{})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Detail.Name, res.Detail.Attribute, res.Detail.Level, res.Detail.ATK, res.Detail.DEF)
	// Output: Blue-Eyes White Dragon LIGHT 8 3000 2500
}
