package service

import (
	"context"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/stats"
)

// Dashboard serves the statistics screen. rangeDays outside 7/14/30 falls
// back to 14.
func (s *Service) Dashboard(ctx context.Context, storeID string, rangeDays int) (domain.Dashboard, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Dashboard{}, err
	}
	now := s.today()

	return s.stats.Dashboard(ctx, storeID, rangeDays, now, func(ctx context.Context) (stats.Input, error) {
		since := stats.SalesSince(now, rangeDays)
		sales, err := s.repo.ListSalesBetween(ctx, storeID, since, now.AddDate(0, 0, 1))
		if err != nil {
			return stats.Input{}, err
		}
		customers, err := s.repo.ListCustomers(ctx, storeID)
		if err != nil {
			return stats.Input{}, err
		}
		products, err := s.repo.ListProducts(ctx, storeID)
		if err != nil {
			return stats.Input{}, err
		}
		items, err := s.stockItems(ctx, storeID, products)
		if err != nil {
			return stats.Input{}, err
		}
		return stats.Input{
			Sales:     sales,
			Customers: len(customers),
			Products:  len(products),
			Stock:     items,
		}, nil
	})
}
