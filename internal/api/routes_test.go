package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-lookup/internal/database"
	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/services"
)

const imageURL = "https://images.example.com/cards/46986414.jpg"

type stubProvider struct{}

func (stubProvider) FetchRecords(_ context.Context, lang models.Language) ([]models.RawRecord, error) {
	if lang == models.LanguageSecondary {
		return []models.RawRecord{
			{"id": 46986414, "name": "ブラック・マジシャン", "attr": "闇", "level": 7, "atk": 2500, "def": 2100},
		}, nil
	}
	return []models.RawRecord{
		{
			"id": 46986414, "name": "Dark Magician", "type": "Normal Monster", "attribute": "DARK",
			"level": 7, "atk": 2500, "def": 2100,
			"card_images": []any{map[string]any{"image_url": imageURL}},
		},
		{
			"id": 89631139, "name": "Blue-Eyes White Dragon", "attribute": "LIGHT",
			"card_images": []any{map[string]any{"image_url": "https://images.example.com/cards/missing.jpg"}},
		},
	}, nil
}

func (stubProvider) FetchBinary(_ context.Context, url string) (int, []byte, error) {
	if url == imageURL {
		return http.StatusOK, []byte("jpeg-bytes"), nil
	}
	return http.StatusNotFound, nil, nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *services.LookupLog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "lookups.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cardService := services.NewCardService(stubProvider{}, services.CardServiceConfig{ScratchDir: t.TempDir()})
	lookupLog := services.NewLookupLog(db)
	janitor := services.NewCacheJanitor(cardService, 0)

	return SetupRouter(RouterConfig{}, cardService, lookupLog, janitor), lookupLog
}

func get(t *testing.T, router http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSearchCards(t *testing.T) {
	router, lookupLog := setupTestRouter(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "exact match",
			target:     "/api/cards/search?q=dark+magician",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["best"] != "Dark Magician" || body["best_id"] != float64(46986414) || body["score"] != float64(0) {
					t.Errorf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "empty query is a no match",
			target:     "/api/cards/search?q=",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["best"] != nil || body["best_id"] != nil || body["score"] != nil {
					t.Errorf("expected null sentinel fields, got %v", body)
				}
				if c, ok := body["candidates"].([]any); !ok || len(c) != 0 {
					t.Errorf("expected empty candidates, got %v", body["candidates"])
				}
			},
		},
		{name: "missing query", target: "/api/cards/search", wantStatus: http.StatusBadRequest},
		{name: "bad limit", target: "/api/cards/search?q=dark&limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.target)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, decode(t, w))
			}
		})
	}

	lookupLog.Wait()
	records, err := lookupLog.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 logged lookups, got %d", len(records))
	}
}

func TestResolveCard(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(t, router, "/api/cards/resolve?q=dark+magician")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	detail := decode(t, w)["detail"].(map[string]any)
	if detail["name"] != "Dark Magician" || detail["language"] != "en" {
		t.Errorf("unexpected detail %v", detail)
	}

	w = get(t, router, "/api/cards/resolve?q=dark+magician&jp=true")
	detail = decode(t, w)["detail"].(map[string]any)
	if detail["name"] != "ブラック・マジシャン" || detail["attribute"] != "闇" {
		t.Errorf("expected Japanese detail, got %v", detail)
	}

	w = get(t, router, "/api/cards/resolve?q=dark+magician", "Accept-Language", "ja-JP,ja;q=0.9")
	detail = decode(t, w)["detail"].(map[string]any)
	if detail["language"] != "ja" {
		t.Errorf("expected Accept-Language to select Japanese, got %v", detail["language"])
	}

	if w := get(t, router, "/api/cards/resolve?q=zzzzqqqqxxxx"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown card, got %d", w.Code)
	}
	if w := get(t, router, "/api/cards/resolve"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without query, got %d", w.Code)
	}
}

func TestGetCard(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(t, router, "/api/cards/46986414?lang=ja")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["name"] != "ブラック・マジシャン" || body["level"] != "7" {
		t.Errorf("unexpected card %v", body)
	}

	if w := get(t, router, "/api/cards/1"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", w.Code)
	}
	if w := get(t, router, "/api/cards/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", w.Code)
	}
}

func TestGetCardImage(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(t, router, "/api/cards/46986414/image")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "jpeg-bytes" {
		t.Errorf("unexpected image body %q", w.Body.String())
	}

	w = get(t, router, "/api/cards/89631139/image")
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for a failed download, got %d", w.Code)
	}
}

func TestCatalogStatusAndHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	get(t, router, "/api/cards/search?q=blue")

	w := get(t, router, "/api/catalog/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	catalog := decode(t, w)["catalog"].(map[string]any)
	if catalog["state"] != "loaded" || catalog["entries"] != float64(2) || catalog["index_size"] != float64(2) {
		t.Errorf("unexpected catalog status %v", catalog)
	}

	if w := get(t, router, "/health"); w.Code != http.StatusOK {
		t.Errorf("health returned %d", w.Code)
	}

	w = get(t, router, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "card_lookup_http_requests_total") {
		t.Errorf("metrics endpoint missing request counter (status %d)", w.Code)
	}
}

func TestPruneImages(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/prune", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if removed := decode(t, w)["removed"]; removed != float64(0) {
		t.Errorf("expected nothing removed, got %v", removed)
	}
}

func TestRecentLookups(t *testing.T) {
	router, lookupLog := setupTestRouter(t)

	get(t, router, "/api/cards/search?q=dark+magician")
	lookupLog.Wait()

	w := get(t, router, "/api/lookups/recent?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	lookups := body["lookups"].([]any)
	if body["enabled"] != true || len(lookups) != 1 {
		t.Fatalf("unexpected body %v", body)
	}
	if first := lookups[0].(map[string]any); first["query"] != "dark magician" || first["tier"] != "exact" {
		t.Errorf("unexpected lookup %v", first)
	}

	if w := get(t, router, "/api/lookups/recent?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", w.Code)
	}
}
