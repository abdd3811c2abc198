package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/card-lookup/internal/models"
)

// YGOPRODeck client defaults.
const (
	DefaultCardAPIBaseURL = "https://db.ygoprodeck.com/api/v7"
	DefaultCardAPITimeout = 60 * time.Second
	DefaultCardAPIRate    = 15
	cardAPIBurst          = 5
	cardAPIUserAgent      = "card-lookup/1.0"
)

// YGOProDeckClient fetches card lists and card images. It is the record and
// binary provider behind the catalog store.
type YGOProDeckClient struct {
	client      *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewYGOProDeckClient creates a client for baseURL. Zero timeout or rate
// selects the defaults.
func NewYGOProDeckClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *YGOProDeckClient {
	if baseURL == "" {
		baseURL = DefaultCardAPIBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultCardAPITimeout
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultCardAPIRate
	}

	return &YGOProDeckClient{
		client:      &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), cardAPIBurst),
	}
}

type cardInfoResponse struct {
	Data json.RawMessage `json:"data"`
}

// cardInfoURL returns the card list endpoint for lang. The primary language
// is the API default; any other language is passed as a query parameter.
func (c *YGOProDeckClient) cardInfoURL(lang models.Language) string {
	u := c.baseURL + "/cardinfo.php"
	if lang != models.LanguagePrimary {
		u += "?" + url.Values{"language": {string(lang)}}.Encode()
	}
	return u
}

// FetchRecords downloads the full card list for lang.
func (c *YGOProDeckClient) FetchRecords(ctx context.Context, lang models.Language) ([]models.RawRecord, error) {
	resp, err := c.get(ctx, c.cardInfoURL(lang))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s card list: %w", lang, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card API returned status %d for %s card list", resp.StatusCode, lang)
	}

	var body cardInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %s card list: %w", lang, err)
	}

	dec := json.NewDecoder(bytes.NewReader(body.Data))
	dec.UseNumber()

	var records []models.RawRecord
	if err := dec.Decode(&records); err != nil || records == nil {
		return nil, fmt.Errorf("%s card list has no data array", lang)
	}
	return records, nil
}

// FetchBinary downloads sourceURL. The status is returned as is; callers
// decide what counts as a failure.
func (c *YGOProDeckClient) FetchBinary(ctx context.Context, sourceURL string) (int, []byte, error) {
	resp, err := c.get(ctx, sourceURL)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read %s: %w", sourceURL, err)
	}
	return resp.StatusCode, data, nil
}

func (c *YGOProDeckClient) get(ctx context.Context, reqURL string) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", cardAPIUserAgent)
	req.Header.Set("Accept", "application/json, image/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", reqURL, err)
	}
	return resp, nil
}
