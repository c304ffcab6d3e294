package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/store"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

type storeLookupStub map[string]domain.Store

func (s storeLookupStub) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	shop, ok := s[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &shop, nil
}

func newStubs() (*userStoreStub, storeLookupStub) {
	users := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
	return users, storeLookupStub{"loja-1": {ID: "loja-1", Name: "Loja 1"}}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	users, stores := newStubs()

	manager := NewAuthManager("test-secret", time.Hour, users, stores)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	list, err := users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 user, got %d", len(list))
	}
	if list[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(list[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", list[0].Password)
	}
}

func TestCreateStaffStoresPasswordHashAndStore(t *testing.T) {
	users, stores := newStubs()
	manager := NewAuthManager("test-secret", time.Hour, users, stores)

	staff, err := manager.CreateStaff(context.Background(), domain.StaffCreateRequest{
		Username: "Balcao1",
		Password: "pass1234",
		StoreID:  "loja-1",
	})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if staff.Username != "balcao1" || staff.StoreID != "loja-1" || staff.Role != domain.RoleStaff {
		t.Fatalf("unexpected staff %+v", staff)
	}

	saved := users.users["balcao1"]
	if saved.Password == "pass1234" || !strings.HasPrefix(saved.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", saved.Password)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "balcao1", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login with new staff failed: %v", err)
	}
	if resp.StoreID != "loja-1" {
		t.Fatalf("expected store in login response, got %q", resp.StoreID)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "balcao1" || actor.Role != domain.RoleStaff || actor.StoreID != "loja-1" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if got := manager.ListStaff(context.Background()); len(got) != 1 || got[0].Username != "balcao1" {
		t.Fatalf("expected only the staff account listed, got %+v", got)
	}
}

func TestCreateStaffRejectsUnknownStoreAndDuplicates(t *testing.T) {
	users, stores := newStubs()
	manager := NewAuthManager("test-secret", time.Hour, users, stores)
	ctx := context.Background()

	if _, err := manager.CreateStaff(ctx, domain.StaffCreateRequest{Username: "balcao1", Password: "pass1234", StoreID: "nowhere"}); err == nil {
		t.Fatalf("expected unknown store to fail")
	}
	if _, err := manager.CreateStaff(ctx, domain.StaffCreateRequest{Username: "balcao1", Password: "pass1234"}); err == nil {
		t.Fatalf("expected missing store to fail")
	}
	if _, err := manager.CreateStaff(ctx, domain.StaffCreateRequest{Username: "admin", Password: "pass1234", StoreID: "loja-1"}); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	users, stores := newStubs()
	hash, err := hashPassword("caixa123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users.users["caixa"] = domain.UserAccount{Username: "caixa", Password: hash, Role: domain.RoleStaff, StoreID: "loja-1"}
	manager := NewAuthManager("test-secret", time.Hour, users, stores)

	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "caixa", Password: "caixa123"})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected inactive account error, got %v", err)
	}
	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "caixa", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestParseTokenRejectsStaffWithoutStore(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, nil, nil)

	token, err := manager.sign("caixa", domain.RoleStaff, "", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected staff token without store to be rejected")
	}

	other := NewAuthManager("another-secret", time.Hour, nil, nil)
	token, err = other.sign("admin", domain.RoleAdmin, "", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
