package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/asteroid-belt/kisan/internal/config"
)

// ErrMissingAPIKey is returned when no data.gov.in key is configured.
var ErrMissingAPIKey = errors.New("missing data.gov.in API key (set DATA_GOV_API_KEY)")

// Record is one mandi row of the data.gov.in daily price dataset.
type Record struct {
	State      string `json:"state"`
	District   string `json:"district"`
	Market     string `json:"market"`
	Commodity  string `json:"commodity"`
	Variety    string `json:"variety"`
	ArrivalDay string `json:"arrival_date"`
	ModalPrice string `json:"modal_price"`
}

// Price parses the modal price.
func (r Record) Price() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(r.ModalPrice), 64)
}

// Feed reads the mandi dataset.
type Feed struct {
	cfg     config.MarketConfig
	http    *http.Client
	limiter *rate.Limiter
}

// NewFeed creates a feed client. The dataset is rate limited to one request
// every few seconds.
func NewFeed(cfg config.MarketConfig, hc *http.Client) *Feed {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 2000
	}
	return &Feed{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// URL returns the dataset request URL.
func (f *Feed) URL() string {
	q := url.Values{}
	q.Set("api-key", f.cfg.APIKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(f.cfg.Limit))
	return strings.TrimRight(f.cfg.BaseURL, "/") + "/" + f.cfg.ResourceID + "?" + q.Encode()
}

// Records fetches the latest dataset rows.
func (f *Feed) Records(ctx context.Context) ([]Record, error) {
	if f.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch mandi prices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch mandi prices: status %d", resp.StatusCode)
	}
	var payload struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode mandi prices: %w", err)
	}
	return payload.Records, nil
}
