package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tebaspos/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestBuildAppInMemory(t *testing.T) {
	cfg := config.Config{
		AuthSecret:            "0123456789abcdef0123456789abcdef",
		AllowedOrigin:         "*",
		StoreID:               "main-store",
		StatsCacheTTLSeconds:  60,
		AccessTokenTTLMinutes: 60,
		Timezone:              "UTC",
	}

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}
}
