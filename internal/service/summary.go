package service

import (
	"context"
	"time"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/stockalert"
)

const (
	detailAlertLimit = 20
	detailSalesLimit = 20
)

// StoreSummary is the store page: contact data, today's and this month's
// sales, this month's cash out and the alert counts.
func (s *Service) StoreSummary(ctx context.Context, storeID string) (domain.StoreSummary, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.StoreSummary{}, err
	}
	shop, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.StoreSummary{}, err
	}

	today, _ := s.parseDay("")
	tomorrow := today.AddDate(0, 0, 1)
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
	nextMonth := month.AddDate(0, 1, 0)

	sales, err := s.repo.ListSalesBetween(ctx, storeID, month, nextMonth)
	if err != nil {
		return domain.StoreSummary{}, err
	}
	summary := domain.StoreSummary{Store: *shop}
	for _, sale := range sales {
		summary.SalesMonth.Count++
		summary.SalesMonth.Revenue += sale.TotalFinal
		at := sale.CreatedAt.In(s.loc)
		if !at.Before(today) && at.Before(tomorrow) {
			summary.SalesToday.Count++
			summary.SalesToday.Revenue += sale.TotalFinal
		}
	}
	summary.SalesMonth.Revenue = numfmt.Round2(summary.SalesMonth.Revenue)
	summary.SalesToday.Revenue = numfmt.Round2(summary.SalesToday.Revenue)

	outs, err := s.repo.ListCashOuts(ctx, storeID, month, nextMonth)
	if err != nil {
		return domain.StoreSummary{}, err
	}
	for _, out := range outs {
		summary.ExpensesMonth += out.Total
	}
	summary.ExpensesMonth = numfmt.Round2(summary.ExpensesMonth)
	summary.Profit = numfmt.Round2(summary.SalesMonth.Revenue - summary.ExpensesMonth)

	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return domain.StoreSummary{}, err
	}
	items, err := s.stockItems(ctx, storeID, products)
	if err != nil {
		return domain.StoreSummary{}, err
	}
	summary.Alerts = stockalert.Count(items)
	return summary, nil
}

// AdminOverview sums sales and cash out per store for one day.
func (s *Service) AdminOverview(ctx context.Context, date string) (domain.AdminOverview, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.AdminOverview{}, err
	}
	day, err := s.parseDay(date)
	if err != nil {
		return domain.AdminOverview{}, err
	}
	next := day.AddDate(0, 0, 1)

	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return domain.AdminOverview{}, err
	}

	overview := domain.AdminOverview{
		Date:   day.Format(dateLayout),
		Stores: make([]domain.StoreOverviewRow, 0, len(stores)),
	}
	for _, shop := range stores {
		row := domain.StoreOverviewRow{StoreID: shop.ID, Name: shop.Name}

		sales, err := s.repo.ListSalesBetween(ctx, shop.ID, day, next)
		if err != nil {
			return domain.AdminOverview{}, err
		}
		for _, sale := range sales {
			row.SalesCount++
			row.SalesTotal += sale.TotalFinal
		}
		outs, err := s.repo.ListCashOuts(ctx, shop.ID, day, next)
		if err != nil {
			return domain.AdminOverview{}, err
		}
		for _, out := range outs {
			row.CashOutCount++
			row.CashOutTotal += out.Total
		}
		row.SalesTotal = numfmt.Round2(row.SalesTotal)
		row.CashOutTotal = numfmt.Round2(row.CashOutTotal)
		row.Net = numfmt.Round2(row.SalesTotal - row.CashOutTotal)

		overview.Stores = append(overview.Stores, row)
		overview.SalesCount += row.SalesCount
		overview.SalesTotal += row.SalesTotal
		overview.CashOutCount += row.CashOutCount
		overview.CashOutTotal += row.CashOutTotal
	}
	overview.SalesTotal = numfmt.Round2(overview.SalesTotal)
	overview.CashOutTotal = numfmt.Round2(overview.CashOutTotal)
	overview.Net = numfmt.Round2(overview.SalesTotal - overview.CashOutTotal)
	return overview, nil
}

// StoreDetail is the admin drill-down of one store: its top alerts and
// latest sales.
func (s *Service) StoreDetail(ctx context.Context, storeID string) (domain.StoreDetail, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StoreDetail{}, err
	}
	shop, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.StoreDetail{}, err
	}
	alerts, err := s.Alerts(ctx, shop.ID, detailAlertLimit)
	if err != nil {
		return domain.StoreDetail{}, err
	}
	recent, err := s.repo.ListSales(ctx, shop.ID, domain.SaleFilter{Limit: detailSalesLimit})
	if err != nil {
		return domain.StoreDetail{}, err
	}
	return domain.StoreDetail{Store: *shop, Alerts: alerts, RecentSales: recent}, nil
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	actor, ok := ActorFromContext(ctx)
	if ok && actor.Role == domain.RoleStaff {
		shop, err := s.repo.GetStore(ctx, actor.StoreID)
		if err != nil {
			return nil, err
		}
		return []domain.Store{*shop}, nil
	}
	return s.repo.ListStores(ctx)
}
