package stats

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tebaspos/backend/internal/cache"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/metrics"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/stockalert"
)

const (
	DefaultRangeDays = 14
	MonthsBack       = 6

	noPayment = "—"
)

// Input is everything a dashboard is computed from. Sales must cover at
// least SalesSince(now, rangeDays).
type Input struct {
	StoreID   string
	RangeDays int
	Now       time.Time
	Sales     []domain.Sale
	Customers int
	Products  int
	Stock     []stockalert.Item
}

// Loader fetches the input on a cache miss.
type Loader func(ctx context.Context) (Input, error)

type Engine struct {
	cache    cache.StatsCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.StatsCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopStatsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &Engine{cache: cacheStore, cacheTTL: cacheTTL}
}

// NormalizeRange accepts 7, 14 or 30 days; anything else becomes 14.
func NormalizeRange(days int) int {
	switch days {
	case 7, 14, 30:
		return days
	}
	return DefaultRangeDays
}

// SalesSince is the earliest sale time a dashboard for now looks at.
func SalesSince(now time.Time, rangeDays int) time.Time {
	monthly := monthStart(now).AddDate(0, -(MonthsBack - 1), 0)
	daily := dayStart(now).AddDate(0, 0, -(NormalizeRange(rangeDays) - 1))
	if daily.Before(monthly) {
		return daily
	}
	return monthly
}

// Dashboard serves a cached dashboard for (store, range, day) or computes
// one from load. Cache failures are logged and never fail the request.
func (e *Engine) Dashboard(ctx context.Context, storeID string, rangeDays int, now time.Time, load Loader) (domain.Dashboard, error) {
	rangeDays = NormalizeRange(rangeDays)
	key := buildCacheKey(storeID, rangeDays, now)

	cached, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.StatsCacheTotal.WithLabelValues("error").Inc()
		logger.L().Warn("stats cache get failed", zap.String("store_id", storeID), zap.Error(err))
	case ok:
		metrics.StatsCacheTotal.WithLabelValues("hit").Inc()
		return *cached, nil
	default:
		metrics.StatsCacheTotal.WithLabelValues("miss").Inc()
	}

	in, err := load(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	in.StoreID = storeID
	in.RangeDays = rangeDays
	in.Now = now

	resp := Compute(in)
	if err := e.cache.Set(ctx, key, &resp, e.cacheTTL); err != nil {
		logger.L().Warn("stats cache set failed", zap.String("store_id", storeID), zap.Error(err))
	}
	return resp, nil
}

func (e *Engine) Invalidate(ctx context.Context, storeID string) {
	if err := e.cache.Invalidate(ctx, storeID); err != nil {
		logger.L().Warn("stats cache invalidate failed", zap.String("store_id", storeID), zap.Error(err))
	}
}

// Compute builds the dashboard. Day and month boundaries follow the location
// of in.Now.
func Compute(in Input) domain.Dashboard {
	now := in.Now
	loc := now.Location()
	rangeDays := NormalizeRange(in.RangeDays)

	today := dayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	month := monthStart(now)
	nextMonth := month.AddDate(0, 1, 0)

	resp := domain.Dashboard{
		StoreID:     in.StoreID,
		RangeDays:   rangeDays,
		Customers:   in.Customers,
		Products:    in.Products,
		Alerts:      stockalert.Count(in.Stock),
		GeneratedAt: now,
	}

	dailyStart := today.AddDate(0, 0, -(rangeDays - 1))
	resp.Daily = make([]domain.DayPoint, rangeDays)
	dailyIndex := make(map[string]int, rangeDays)
	for i := 0; i < rangeDays; i++ {
		key := dailyStart.AddDate(0, 0, i).Format("2006-01-02")
		resp.Daily[i] = domain.DayPoint{Date: key}
		dailyIndex[key] = i
	}

	firstMonth := month.AddDate(0, -(MonthsBack - 1), 0)
	resp.Monthly = make([]domain.MonthPoint, MonthsBack)
	monthlyIndex := make(map[string]int, MonthsBack)
	for i := 0; i < MonthsBack; i++ {
		key := firstMonth.AddDate(0, i, 0).Format("2006-01")
		resp.Monthly[i] = domain.MonthPoint{Month: key}
		monthlyIndex[key] = i
	}

	payments := map[string]*domain.PaymentPoint{}
	for _, sale := range in.Sales {
		at := sale.CreatedAt.In(loc)
		value := sale.TotalFinal

		if !at.Before(today) && at.Before(tomorrow) {
			resp.Today.Count++
			resp.Today.Revenue += value
		}
		if !at.Before(month) && at.Before(nextMonth) {
			resp.Month.Count++
			resp.Month.Revenue += value

			method := strings.TrimSpace(sale.PaymentMethod)
			if method == "" {
				method = noPayment
			}
			point, ok := payments[method]
			if !ok {
				point = &domain.PaymentPoint{Method: method}
				payments[method] = point
			}
			point.Count++
			point.Total += value
		}
		if i, ok := dailyIndex[at.Format("2006-01-02")]; ok {
			resp.Daily[i].Count++
			resp.Daily[i].Revenue += value
		}
		if i, ok := monthlyIndex[at.Format("2006-01")]; ok {
			resp.Monthly[i].Count++
			resp.Monthly[i].Revenue += value
		}
	}

	resp.Today.Revenue = numfmt.Round2(resp.Today.Revenue)
	resp.Month.Revenue = numfmt.Round2(resp.Month.Revenue)
	if resp.Month.Count > 0 {
		resp.AverageTicket = numfmt.Round2(resp.Month.Revenue / float64(resp.Month.Count))
	}
	for i := range resp.Daily {
		resp.Daily[i].Revenue = numfmt.Round2(resp.Daily[i].Revenue)
	}
	for i := range resp.Monthly {
		resp.Monthly[i].Revenue = numfmt.Round2(resp.Monthly[i].Revenue)
	}

	resp.Payments = make([]domain.PaymentPoint, 0, len(payments))
	for _, p := range payments {
		p.Total = numfmt.Round2(p.Total)
		resp.Payments = append(resp.Payments, *p)
	}
	sort.Slice(resp.Payments, func(i, j int) bool {
		if resp.Payments[i].Total != resp.Payments[j].Total {
			return resp.Payments[i].Total > resp.Payments[j].Total
		}
		return resp.Payments[i].Method < resp.Payments[j].Method
	})

	// First day wins ties, matching a left-to-right scan.
	best := resp.Daily[0]
	for _, d := range resp.Daily[1:] {
		if d.Revenue > best.Revenue {
			best = d
		}
	}
	resp.TopDay = &best
	return resp
}

func buildCacheKey(storeID string, rangeDays int, now time.Time) string {
	parts := []string{
		storeID,
		fmt.Sprintf("r:%d", rangeDays),
		"d:" + now.Format("2006-01-02"),
		"tz:" + now.Location().String(),
	}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return cache.StoreKeyPrefix(storeID) + hex.EncodeToString(hash[:])
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
