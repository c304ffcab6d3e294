package service

import (
	"context"
	"strings"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/store"
)

func (s *Service) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, storeID)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.Customer{}, err
	}
	customer := customerFromRequest(req)
	if customer.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	customer.StoreID = storeID
	customer.CreatedAt = s.now().UTC()

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, storeID, "customer_create", "customer", created.ID, created.Name)
	s.stats.Invalidate(ctx, storeID)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, customerID string, req domain.CustomerRequest) (domain.Customer, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.Customer{}, err
	}
	customer := customerFromRequest(req)
	if customer.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	customer.ID = strings.TrimSpace(customerID)
	customer.StoreID = storeID

	updated, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, storeID, "customer_update", "customer", updated.ID, updated.Name)
	return *updated, nil
}

// DeleteCustomer keeps the customer's sales; they show as "Indefinido".
func (s *Service) DeleteCustomer(ctx context.Context, storeID string, customerID string) error {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCustomer(ctx, storeID, strings.TrimSpace(customerID)); err != nil {
		return err
	}
	s.logAudit(ctx, storeID, "customer_delete", "customer", customerID, "")
	s.stats.Invalidate(ctx, storeID)
	return nil
}

func customerFromRequest(req domain.CustomerRequest) domain.Customer {
	return domain.Customer{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		City:         strings.TrimSpace(req.City),
	}
}
