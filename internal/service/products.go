package service

import (
	"context"
	"fmt"
	"strings"

	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/store"
)

func (s *Service) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, storeID)
}

// ResolveProduct finds a product by id, "N*" code, bare code or label.
func (s *Service) ResolveProduct(ctx context.Context, storeID string, ref string) (domain.Product, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Product{}, err
	}
	index, _, err := s.productIndex(ctx, storeID)
	if err != nil {
		return domain.Product{}, err
	}
	product, ok := index.ResolveQuick(ref)
	if !ok {
		return domain.Product{}, fmt.Errorf("product %q: %w", ref, store.ErrNotFound)
	}
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.Product{}, err
	}

	description := strings.TrimSpace(req.Description)
	price := numfmt.Round2(req.Price.Float())
	if description == "" || price < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		StoreID:      storeID,
		Kind:         strings.TrimSpace(req.Kind),
		Description:  description,
		Brand:        catalog.NormalizeBrand(req.Brand),
		Supplier:     strings.TrimSpace(req.Supplier),
		Price:        price,
		MinimumStock: catalog.ParseMinimum(req.MinimumStock),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, storeID, "product_create", "product", created.ID,
		fmt.Sprintf("code=%s,price=%s", catalog.FormatCode(created.Code), numfmt.FormatMoney(created.Price)))
	s.stats.Invalidate(ctx, storeID)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, storeID string, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	if existing.StoreID != storeID {
		return domain.Product{}, store.ErrNotFound
	}

	updated := *existing
	if req.Kind != nil {
		updated.Kind = strings.TrimSpace(*req.Kind)
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Description = description
	}
	if req.Brand != nil {
		updated.Brand = catalog.NormalizeBrand(*req.Brand)
	}
	if req.Supplier != nil {
		updated.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.Price != nil {
		price := numfmt.Round2(req.Price.Float())
		if price < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = price
	}
	if req.MinimumStock != nil {
		updated.MinimumStock = catalog.ParseMinimum(*req.MinimumStock)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, storeID, "product_update", "product", saved.ID,
		fmt.Sprintf("price=%s,minimum=%s", numfmt.FormatMoney(saved.Price), formatMinimum(saved.MinimumStock)))
	s.stats.Invalidate(ctx, storeID)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, storeID string, productID string) error {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, storeID, strings.TrimSpace(productID)); err != nil {
		return err
	}
	s.logAudit(ctx, storeID, "product_delete", "product", productID, "")
	s.stats.Invalidate(ctx, storeID)
	return nil
}

func formatMinimum(minimum *int) string {
	if minimum == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *minimum)
}
