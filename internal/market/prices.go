// Package market reads daily mandi prices and refreshes them from the
// government open-data feed.
package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// Unit is the price unit of the feed.
const Unit = "Quintal"

// Key caches the price list.
var Key = cachedquery.NewKey("market_prices", 1)

// Commodity maps a feed commodity name to a crop id.
type Commodity struct {
	FeedName string
	CropID   string
}

// Commodities lists the tracked crops. A record matches when its commodity
// contains FeedName.
var Commodities = []Commodity{
	{"Banana", "banana"},
	{"Rice", "rice"},
	{"Coffee", "coffee"},
	{"Coconut", "coconut"},
	{"Black Pepper", "black_pepper"},
	{"Cardamom", "cardamom"},
	{"Ginger", "ginger"},
	{"Cashewnuts", "cashew"},
}

// Service reads and updates market_prices.
type Service struct {
	Client *remote.Client
	Feed   *Feed
	now    func() time.Time
}

// NewService creates a market service. feed may be nil for read-only use.
func NewService(c *remote.Client, feed *Feed) *Service {
	return &Service{Client: c, Feed: feed, now: time.Now}
}

// Fetch returns all prices ordered by name.
func (s *Service) Fetch(ctx context.Context) ([]models.MarketPrice, error) {
	var rows []models.MarketPrice
	if err := s.Client.From("market_prices").Select("*").Order("name", true).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("fetch market prices: %w", err)
	}
	return rows, nil
}

// Filter keeps prices whose name contains query, case-insensitively.
func Filter(prices []models.MarketPrice, query string) []models.MarketPrice {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return prices
	}
	var out []models.MarketPrice
	for _, p := range prices {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}

// UpdateReport summarizes an UpdatePrices run.
type UpdateReport struct {
	Records int      `json:"records"`
	Updated []string `json:"updated"`
	Missing []string `json:"missing,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// NextPrice computes the stored row for a new feed price. The anchor
// (prev_price) is kept when the old row was updated on the same calendar
// day, and moves to the old price on a new day. A crop seen for the first
// time is stable with its own price as anchor.
func NextPrice(old *models.MarketPrice, cropID, name string, price float64, now time.Time) models.MarketPrice {
	next := models.MarketPrice{
		CropID:      cropID,
		Name:        name,
		Price:       price,
		PrevPrice:   price,
		Trend:       models.TrendStable,
		Unit:        Unit,
		LastUpdated: now.UTC(),
	}
	if old == nil {
		return next
	}
	if sameDay(old.LastUpdated, now) {
		next.PrevPrice = old.PrevPrice
	} else {
		next.PrevPrice = old.Price
	}
	diff := price - next.PrevPrice
	switch {
	case diff > 0:
		next.Trend = models.TrendUp
	case diff < 0:
		next.Trend = models.TrendDown
	}
	next.Change = math.Abs(diff)
	return next
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FindRecord returns the first record whose commodity contains name.
func FindRecord(records []Record, name string) (Record, bool) {
	for _, r := range records {
		if strings.Contains(r.Commodity, name) {
			return r, true
		}
	}
	return Record{}, false
}

// UpdatePrices pulls the feed and upserts one row per tracked crop. A crop
// that fails is reported and the run continues.
func (s *Service) UpdatePrices(ctx context.Context) (UpdateReport, error) {
	if s.Feed == nil {
		return UpdateReport{}, ErrMissingAPIKey
	}
	records, err := s.Feed.Records(ctx)
	if err != nil {
		return UpdateReport{}, err
	}
	log.Debugf("fetched %d mandi records", len(records))

	rep := UpdateReport{Records: len(records)}
	for _, c := range Commodities {
		rec, ok := FindRecord(records, c.FeedName)
		if !ok {
			rep.Missing = append(rep.Missing, c.CropID)
			continue
		}
		price, err := rec.Price()
		if err != nil {
			log.Warnf("skip %s: bad modal price %q", c.CropID, rec.ModalPrice)
			rep.Failed = append(rep.Failed, c.CropID)
			continue
		}
		if err := s.updateOne(ctx, c.CropID, rec.Commodity, price); err != nil {
			log.Errorf("update %s: %v", c.CropID, err)
			rep.Failed = append(rep.Failed, c.CropID)
			continue
		}
		log.Debugf("updated %s: %.2f", c.CropID, price)
		rep.Updated = append(rep.Updated, c.CropID)
	}
	return rep, nil
}

func (s *Service) updateOne(ctx context.Context, cropID, name string, price float64) error {
	var old models.MarketPrice
	found, err := s.Client.From("market_prices").Select("price,prev_price,last_updated").Eq("crop_id", cropID).MaybeSingle(ctx, &old)
	if err != nil {
		return err
	}
	var prev *models.MarketPrice
	if found {
		prev = &old
	}
	row := NextPrice(prev, cropID, name, price, s.now())
	_, err = s.Client.Upsert(ctx, "market_prices", row, "crop_id")
	return err
}
