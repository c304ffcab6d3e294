package service

import (
	"context"

	"tebaspos/backend/internal/export"
)

// ExportSales renders the sales history between two days as CSV and
// returns the suggested file name with it.
func (s *Service) ExportSales(ctx context.Context, storeID string, from string, to string) (string, string, error) {
	rows, err := s.ListSales(ctx, storeID, from, to, 0)
	if err != nil {
		return "", "", err
	}
	return export.FileName("vendas", s.today()), export.SalesCSV(rows, s.loc), nil
}

func (s *Service) ExportCustomers(ctx context.Context, storeID string) (string, string, error) {
	customers, err := s.ListCustomers(ctx, storeID)
	if err != nil {
		return "", "", err
	}
	return export.FileName("clientes", s.today()), export.CustomersCSV(customers, s.loc), nil
}
