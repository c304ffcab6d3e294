package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"tebaspos/backend/internal/cache"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/stockalert"
)

func intPtr(v int) *int { return &v }

func sale(at time.Time, payment string, total float64) domain.Sale {
	return domain.Sale{CreatedAt: at, PaymentMethod: payment, TotalFinal: total}
}

func TestComputeDashboard(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, loc)

	in := Input{
		StoreID:   "store-1",
		RangeDays: 7,
		Now:       now,
		Customers: 4,
		Products:  9,
		Sales: []domain.Sale{
			sale(time.Date(2025, 3, 10, 9, 0, 0, 0, loc), domain.PaymentPix, 100),
			sale(time.Date(2025, 3, 10, 11, 0, 0, 0, loc), domain.PaymentCash, 50.5),
			// 01:30 UTC on the 11th is still the 10th in BRT.
			sale(time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC), domain.PaymentPix, 10),
			sale(time.Date(2025, 3, 5, 12, 0, 0, 0, loc), domain.PaymentCard, 300),
			sale(time.Date(2025, 2, 20, 12, 0, 0, 0, loc), domain.PaymentCash, 80),
		},
		Stock: []stockalert.Item{
			{ProductID: "a", Quantity: 1, Minimum: intPtr(5)},
			{ProductID: "b", Quantity: 6, Minimum: intPtr(5)},
			{ProductID: "c", Quantity: 50, Minimum: intPtr(5)},
			{ProductID: "d", Quantity: 0},
		},
	}

	d := Compute(in)

	if d.Today.Count != 3 || d.Today.Revenue != 160.5 {
		t.Fatalf("unexpected today stats: %+v", d.Today)
	}
	if d.Month.Count != 4 || d.Month.Revenue != 460.5 {
		t.Fatalf("unexpected month stats: %+v", d.Month)
	}
	if d.AverageTicket != 115.13 {
		t.Fatalf("expected average ticket 115.13, got %v", d.AverageTicket)
	}
	if d.Alerts.Red != 1 || d.Alerts.Orange != 1 || d.Alerts.Total != 2 {
		t.Fatalf("unexpected alert counts: %+v", d.Alerts)
	}
	if len(d.Daily) != 7 || d.Daily[0].Date != "2025-03-04" || d.Daily[6].Date != "2025-03-10" {
		t.Fatalf("unexpected daily series: %+v", d.Daily)
	}
	if d.TopDay == nil || d.TopDay.Date != "2025-03-05" || d.TopDay.Revenue != 300 {
		t.Fatalf("unexpected top day: %+v", d.TopDay)
	}
	if len(d.Monthly) != MonthsBack || d.Monthly[0].Month != "2024-10" || d.Monthly[5].Month != "2025-03" {
		t.Fatalf("unexpected monthly series: %+v", d.Monthly)
	}
	if d.Monthly[4].Count != 1 || d.Monthly[4].Revenue != 80 {
		t.Fatalf("unexpected february bucket: %+v", d.Monthly[4])
	}
	if len(d.Payments) != 3 || d.Payments[0].Method != domain.PaymentCard || d.Payments[1].Method != domain.PaymentPix {
		t.Fatalf("unexpected payment breakdown: %+v", d.Payments)
	}
	if d.Payments[1].Count != 2 || d.Payments[1].Total != 110 {
		t.Fatalf("unexpected pix totals: %+v", d.Payments[1])
	}
}

func TestComputeEmptyStore(t *testing.T) {
	d := Compute(Input{Now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), RangeDays: 99})
	if d.RangeDays != DefaultRangeDays || len(d.Daily) != DefaultRangeDays {
		t.Fatalf("expected default range, got %d", d.RangeDays)
	}
	if d.AverageTicket != 0 || len(d.Payments) != 0 {
		t.Fatalf("expected empty dashboard, got %+v", d)
	}
	if d.TopDay == nil || d.TopDay.Date != d.Daily[0].Date {
		t.Fatalf("expected first day as top day on ties, got %+v", d.TopDay)
	}
}

func TestSalesSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	got := SalesSince(now, 30)
	want := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDashboardUsesCacheUntilInvalidated(t *testing.T) {
	engine := NewEngine(cache.NewMemoryStatsCache(), time.Minute)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	loads := 0
	load := func(context.Context) (Input, error) {
		loads++
		return Input{Sales: []domain.Sale{sale(now, domain.PaymentCash, 10)}}, nil
	}

	ctx := context.Background()
	first, err := engine.Dashboard(ctx, "store-1", 7, now, load)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	second, err := engine.Dashboard(ctx, "store-1", 7, now, load)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}
	if first.Today != second.Today || second.StoreID != "store-1" {
		t.Fatalf("cached dashboard differs: %+v vs %+v", first, second)
	}

	if _, err := engine.Dashboard(ctx, "store-1", 30, now, load); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected a separate entry per range, got %d loads", loads)
	}

	engine.Invalidate(ctx, "store-1")
	if _, err := engine.Dashboard(ctx, "store-1", 7, now, load); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if loads != 3 {
		t.Fatalf("expected reload after invalidate, got %d loads", loads)
	}
}

func TestDashboardPropagatesLoadError(t *testing.T) {
	engine := NewEngine(nil, 0)
	boom := errors.New("boom")
	_, err := engine.Dashboard(context.Background(), "store-1", 7, time.Now(), func(context.Context) (Input, error) {
		return Input{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}
