package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/events"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/stats"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/xid"
)

const dateLayout = "2006-01-02"

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	stats          *stats.Engine
	events         events.Publisher
	defaultStoreID string
	loc            *time.Location
	now            func() time.Time
}

func New(repo store.Repository, statsEngine *stats.Engine, publisher events.Publisher, defaultStoreID string, loc *time.Location) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if statsEngine == nil {
		statsEngine = stats.NewEngine(nil, 0)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		repo:           repo,
		stats:          statsEngine,
		events:         publisher,
		defaultStoreID: defaultStoreID,
		loc:            loc,
		now:            time.Now,
	}
}

// SetClock replaces the clock used for "today" and sale timestamps.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// scopeStore picks the store a request acts on. Staff are pinned to the
// store in their token; admins may name any store and fall back to the
// default one.
func (s *Service) scopeStore(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	actor, ok := ActorFromContext(ctx)
	if ok && actor.Role == domain.RoleStaff {
		if actor.StoreID == "" {
			return "", fmt.Errorf("staff account has no store: %w", store.ErrForbidden)
		}
		if requested != "" && requested != actor.StoreID {
			return "", fmt.Errorf("store %s: %w", requested, store.ErrForbidden)
		}
		return actor.StoreID, nil
	}
	if requested == "" {
		requested = s.defaultStoreID
	}
	return requested, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required: %w", store.ErrForbidden)
	}
	return nil
}

func (s *Service) productIndex(ctx context.Context, storeID string) (*catalog.Index, []domain.Product, error) {
	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewIndex(products), products, nil
}

// parseDay reads a YYYY-MM-DD date in the store location; blank is today.
func (s *Service) parseDay(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		now := s.today()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, store.ErrInvalidInput)
	}
	return day, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().UTC().Add(-24 * time.Hour)
	} else {
		day, err := s.parseDay(date)
		if err != nil {
			return nil, err
		}
		from = day
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, strings.TrimSpace(storeID), from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		logger.L().Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentPix:
		return true
	default:
		return false
	}
}
