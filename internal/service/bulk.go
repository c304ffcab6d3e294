package service

import (
	"context"
	"errors"
	"fmt"

	"tebaspos/backend/internal/bulkentry"
	"tebaspos/backend/internal/cart"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/metrics"
	"tebaspos/backend/internal/store"
)

// BulkEntry records a batch of consolidated sales, one per row. When any
// row is invalid nothing is recorded and the response marks every bad row
// alongside bulkentry.ErrRejected.
//
// Rows are recorded in order. If the ledger refuses a row, the rows before
// it stay recorded, the failing row is marked and the error is returned.
func (s *Service) BulkEntry(ctx context.Context, req domain.BulkEntryRequest) (domain.BulkEntryResponse, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.BulkEntryResponse{}, err
	}

	index, _, err := s.productIndex(ctx, storeID)
	if err != nil {
		return domain.BulkEntryResponse{}, err
	}
	customers, err := s.repo.ListCustomers(ctx, storeID)
	if err != nil {
		return domain.BulkEntryResponse{}, err
	}
	stock, err := s.repo.StockSnapshot(ctx, storeID)
	if err != nil {
		return domain.BulkEntryResponse{}, err
	}

	batch := bulkentry.Batch{
		Products:  index,
		Customers: customers,
		Stock:     cart.StockSnapshot(stock),
		Location:  s.loc,
	}
	results, drafts, err := batch.Prepare(storeID, actorName(ctx), req.Rows)
	if err != nil {
		if errors.Is(err, bulkentry.ErrRejected) {
			for _, res := range results {
				outcome := "ok"
				if res.Error != "" {
					outcome = "rejected"
				}
				metrics.BulkRowsTotal.WithLabelValues(outcome).Inc()
			}
		}
		return domain.BulkEntryResponse{Rows: results}, err
	}

	resp := domain.BulkEntryResponse{Rows: results, Sales: make([]domain.SaleReceipt, 0, len(drafts))}
	for i, draft := range drafts {
		receipt, err := s.recordSale(ctx, draft)
		if err != nil {
			resp.Rows[i].Error = ledgerMessage(err)
			metrics.BulkRowsTotal.WithLabelValues("failed").Inc()
			return resp, fmt.Errorf("row %d: %w", resp.Rows[i].Index+1, err)
		}
		metrics.BulkRowsTotal.WithLabelValues("recorded").Inc()
		resp.Sales = append(resp.Sales, receipt)
	}

	s.logAudit(ctx, storeID, "bulk_entry", "sale", storeID, fmt.Sprintf("rows=%d", len(resp.Sales)))
	return resp, nil
}

func ledgerMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return bulkentry.ReasonInsufficientStock
	case errors.Is(err, store.ErrNotFound):
		return bulkentry.ReasonNotFound
	default:
		return err.Error()
	}
}
