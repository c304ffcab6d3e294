package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"tebaspos/backend/internal/cart"
	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/metrics"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/tracing"
	"tebaspos/backend/internal/xid"
)

// Cart edit operations replayed by PreviewCart and CreateSale.
const (
	EditAdd             = "add"
	EditQuantity        = "quantity"
	EditDiscount        = "discount"
	EditTotal           = "total"
	EditRemove          = "remove"
	EditClear           = "clear"
	EditOverallDiscount = "overall_discount"
	EditReceived        = "received"
)

// replayCart rebuilds a cart from the edits the counter screen made, in
// order. Values are pt-BR numbers; an add without a value adds one unit.
func (s *Service) replayCart(ctx context.Context, storeID string, edits []domain.CartEdit) (*cart.Reconciler, error) {
	index, _, err := s.productIndex(ctx, storeID)
	if err != nil {
		return nil, err
	}

	r := cart.New()
	for i, edit := range edits {
		value := numfmt.ParseBR(edit.Value)
		var editErr error
		switch strings.ToLower(strings.TrimSpace(edit.Op)) {
		case EditAdd:
			product, ok := index.ResolveQuick(edit.Product)
			if !ok {
				return nil, fmt.Errorf("edit %d: %s %q: %w", i+1, cart.ReasonNotFound, edit.Product, store.ErrNotFound)
			}
			qty := 1.0
			if strings.TrimSpace(edit.Value) != "" {
				qty = value
			}
			r.Add(product, qty)
		case EditQuantity:
			editErr = r.SetQuantity(edit.Line, value)
		case EditDiscount:
			editErr = r.SetDiscountPct(edit.Line, value)
		case EditTotal:
			editErr = r.SetLineTotal(edit.Line, value)
		case EditRemove:
			editErr = r.Remove(edit.Line)
		case EditClear:
			r.Clear()
		case EditOverallDiscount:
			r.SetOverallDiscountPct(value)
		case EditReceived:
			r.SetReceived(value)
		default:
			return nil, fmt.Errorf("edit %d: unknown op %q: %w", i+1, edit.Op, store.ErrInvalidInput)
		}
		if editErr != nil {
			return nil, fmt.Errorf("edit %d: %v: %w", i+1, editErr, store.ErrInvalidInput)
		}
	}
	return r, nil
}

func cartView(r *cart.Reconciler, verr *cart.ValidationError) domain.CartView {
	lines := r.Lines()
	view := domain.CartView{
		Lines:              make([]domain.CartLineView, 0, len(lines)),
		Subtotal:           r.Subtotal(),
		OverallDiscountPct: r.OverallDiscountPct(),
		FinalTotal:         r.FinalTotal(),
		ReceivedTotal:      r.Received(),
		Tracking:           r.Tracking().String(),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, domain.CartLineView{
			ProductID:   l.Product.ID,
			Label:       catalog.Label(l.Product),
			UnitPrice:   l.Product.Price,
			Quantity:    l.Quantity,
			DiscountPct: l.DiscountPct,
			Total:       l.Total,
		})
	}
	if verr != nil {
		view.Error = verr.Error()
		for _, le := range verr.Lines {
			if le.Index >= 0 && le.Index < len(view.Lines) {
				view.Lines[le.Index].Error = le.Reason
			}
		}
	}
	return view
}

// PreviewCart replays edits and reports what a submission would be blocked
// by, without touching the ledger.
func (s *Service) PreviewCart(ctx context.Context, req domain.CartRequest) (domain.CartView, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.CartView{}, err
	}
	r, err := s.replayCart(ctx, storeID, req.Edits)
	if err != nil {
		return domain.CartView{}, err
	}
	if r.Len() == 0 {
		return cartView(r, nil), nil
	}
	stock, err := s.repo.StockSnapshot(ctx, storeID)
	if err != nil {
		return domain.CartView{}, err
	}

	var verr *cart.ValidationError
	if err := r.Validate(cart.StockSnapshot(stock)); err != nil && !errors.As(err, &verr) {
		return domain.CartView{}, err
	}
	return cartView(r, verr), nil
}

// CreateSale validates the replayed cart locally and hands it to the sale
// ledger. A *cart.ValidationError means nothing was sent; the response
// still carries the cart with the offending lines marked.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleCreateResponse, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if !isSupportedPaymentMethod(method) {
		return domain.SaleCreateResponse{}, fmt.Errorf("payment method %q: %w", method, store.ErrInvalidInput)
	}

	r, err := s.replayCart(ctx, storeID, req.Edits)
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}
	stock, err := s.repo.StockSnapshot(ctx, storeID)
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}

	draft, err := r.Submission(cart.StockSnapshot(stock), cart.Meta{
		StoreID:       storeID,
		UserID:        actorName(ctx),
		PaymentMethod: method,
		CustomerID:    normalizeCustomerID(req.CustomerID),
		CreatedAt:     req.CreatedAt,
	})
	if err != nil {
		var verr *cart.ValidationError
		if errors.As(err, &verr) {
			metrics.CartValidationFailedTotal.WithLabelValues(validationReason(verr)).Inc()
			return domain.SaleCreateResponse{Cart: cartView(r, verr)}, err
		}
		return domain.SaleCreateResponse{}, err
	}

	receipt, err := s.recordSale(ctx, draft)
	if err != nil {
		return domain.SaleCreateResponse{Cart: cartView(r, nil)}, err
	}
	return domain.SaleCreateResponse{Receipt: receipt, Cart: cartView(r, nil)}, nil
}

// recordSale is the single path to the ledger for counter and bulk sales.
func (s *Service) recordSale(ctx context.Context, draft domain.SaleDraft) (domain.SaleReceipt, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.create_sale")
	defer span.End()
	span.SetAttributes(
		attribute.String("store_id", draft.StoreID),
		attribute.Int("items", len(draft.Items)),
	)

	startedAt := time.Now()
	receipt, err := s.repo.CreateSale(ctx, draft)
	metrics.LedgerLatency.WithLabelValues("create").Observe(time.Since(startedAt).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.SalesFailedTotal.WithLabelValues(ledgerReason(err)).Inc()
		logger.L().Warn("sale rejected by ledger", zap.String("store_id", draft.StoreID), zap.Error(err))
		return domain.SaleReceipt{}, err
	}
	span.SetAttributes(attribute.Int64("sale_number", receipt.SaleNumber))

	metrics.SalesCreatedTotal.Inc()
	metrics.SaleRevenueTotal.Add(receipt.TotalFinal)
	logger.L().Info("sale recorded",
		zap.String("store_id", draft.StoreID),
		zap.String("sale_id", receipt.SaleID),
		zap.Int64("sale_number", receipt.SaleNumber),
		zap.Float64("total", receipt.TotalFinal),
	)

	s.publish(ctx, domain.SaleEvent{
		Type:       domain.SaleEventCreated,
		StoreID:    draft.StoreID,
		SaleID:     receipt.SaleID,
		SaleNumber: receipt.SaleNumber,
		TotalFinal: receipt.TotalFinal,
		Items:      len(draft.Items),
	})
	s.stats.Invalidate(ctx, draft.StoreID)
	s.logAudit(ctx, draft.StoreID, "sale_create", "sale", receipt.SaleID,
		fmt.Sprintf("number=%d,total=%s,payment=%s", receipt.SaleNumber, numfmt.FormatMoney(receipt.TotalFinal), draft.PaymentMethod))
	return receipt, nil
}

func (s *Service) ReverseSale(ctx context.Context, storeID string, saleID string) (domain.Sale, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Sale{}, err
	}
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}

	ctx, span := tracing.StartSpan(ctx, "ledger.reverse_sale")
	defer span.End()
	span.SetAttributes(attribute.String("store_id", storeID), attribute.String("sale_id", saleID))

	startedAt := time.Now()
	sale, err := s.repo.ReverseSale(ctx, storeID, saleID)
	metrics.LedgerLatency.WithLabelValues("reverse").Observe(time.Since(startedAt).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Sale{}, err
	}

	metrics.SalesReversedTotal.Inc()
	s.publish(ctx, domain.SaleEvent{
		Type:       domain.SaleEventReversed,
		StoreID:    storeID,
		SaleID:     sale.ID,
		SaleNumber: sale.SaleNumber,
		TotalFinal: sale.TotalFinal,
		Items:      len(sale.Items),
	})
	s.stats.Invalidate(ctx, storeID)
	s.logAudit(ctx, storeID, "sale_reverse", "sale", sale.ID,
		fmt.Sprintf("number=%d,total=%s", sale.SaleNumber, numfmt.FormatMoney(sale.TotalFinal)))
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, storeID string, saleID string) (domain.Sale, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, storeID, strings.TrimSpace(saleID))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// ListSales returns the sales history, newest first. from and to are
// YYYY-MM-DD days in the store location; to is inclusive.
func (s *Service) ListSales(ctx context.Context, storeID string, from string, to string, limit int) ([]domain.SaleRow, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	filter, err := s.saleFilter(from, to, limit)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, storeID, filter)
}

func (s *Service) saleFilter(from string, to string, limit int) (domain.SaleFilter, error) {
	filter := domain.SaleFilter{Limit: limit}
	if strings.TrimSpace(from) != "" {
		day, err := s.parseDay(from)
		if err != nil {
			return domain.SaleFilter{}, err
		}
		filter.From = &day
	}
	if strings.TrimSpace(to) != "" {
		day, err := s.parseDay(to)
		if err != nil {
			return domain.SaleFilter{}, err
		}
		end := day.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, nil
}

// UpdateSale edits the customer, payment method or received amount of a
// recorded sale. Items and totals are never edited in place.
func (s *Service) UpdateSale(ctx context.Context, storeID string, saleID string, req domain.SaleUpdateRequest) (domain.Sale, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Sale{}, err
	}
	existing, err := s.repo.GetSale(ctx, storeID, strings.TrimSpace(saleID))
	if err != nil {
		return domain.Sale{}, err
	}

	updated := *existing
	if req.CustomerID != nil {
		updated.CustomerID = normalizeCustomerID(req.CustomerID)
	}
	if req.PaymentMethod != nil {
		method := strings.TrimSpace(*req.PaymentMethod)
		if !isSupportedPaymentMethod(method) {
			return domain.Sale{}, fmt.Errorf("payment method %q: %w", method, store.ErrInvalidInput)
		}
		updated.PaymentMethod = method
	}
	if req.ReceivedTotal != nil {
		received := numfmt.Round2(req.ReceivedTotal.Float())
		if received < 0 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		updated.ReceivedTotal = received
	}

	saved, err := s.repo.UpdateSale(ctx, updated)
	if err != nil {
		return domain.Sale{}, err
	}
	s.stats.Invalidate(ctx, storeID)
	s.logAudit(ctx, storeID, "sale_update", "sale", saved.ID,
		fmt.Sprintf("payment=%s,received=%s", saved.PaymentMethod, numfmt.FormatMoney(saved.ReceivedTotal)))
	return *saved, nil
}

func (s *Service) publish(ctx context.Context, event domain.SaleEvent) {
	event.EventID = xid.New("evt")
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		logger.L().Warn("sale event publish failed",
			zap.String("type", event.Type),
			zap.String("sale_id", event.SaleID),
			zap.Error(err),
		)
	}
}

func normalizeCustomerID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validationReason(verr *cart.ValidationError) string {
	if verr.Cart != "" {
		return label(verr.Cart)
	}
	if len(verr.Lines) > 0 {
		return label(verr.Lines[0].Reason)
	}
	return "unknown"
}

func ledgerReason(err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func label(reason string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(reason)), " ", "_")
}
