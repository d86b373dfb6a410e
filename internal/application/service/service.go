package service

import (
	"context"
	"time"

	"order-service/internal/domain"
	"order-service/internal/observability"

	"go.uber.org/zap"
)

//go:generate mockgen -source internal/application/service/service.go -destination=internal/application/service/service_mock_test.go -package=service

type Cache interface {
	Get(uid string) (domain.Order, bool)
	Set(uid string, order domain.Order)
}

type Storage interface {
	CreateOrder(ctx context.Context, req *domain.CreateOrder) (*domain.Order, error)
	GetByUID(ctx context.Context, uid string) (*domain.Order, error)
}

type Service struct {
	cache   Cache
	storage Storage
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewService(cache Cache, storage Storage, logger *zap.Logger, metrics observability.Metrics) *Service {
	return &Service{
		cache:   cache,
		storage: storage,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *Service) Create(ctx context.Context, req *domain.CreateOrder) (*domain.Order, error) {
	order, _, err := s.CreateWithStats(ctx, req)
	return order, err
}

// CreateWithStats writes the aggregate through the storage transaction and,
// only on success, publishes it to the cache so the next read is a hit.
// Storage errors propagate untouched; nothing is cached for a failed write.
func (s *Service) CreateWithStats(ctx context.Context, req *domain.CreateOrder) (*domain.Order, CreateStats, error) {
	var st CreateStats

	t0 := time.Now()
	order, err := s.storage.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Error("Error while creating order in db",
			zap.Error(err),
		)
		return nil, st, err
	}
	st.DBWriteMs = convertToMs(t0)

	s.cache.Set(order.OrderUID, *order)

	s.metrics.ObserveCreate(st.DBWriteMs)
	s.logger.Info("Order created",
		zap.String("order_uid", order.OrderUID),
		zap.Float64("db_write_ms", st.DBWriteMs),
	)

	return order, st, nil
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*domain.Order, error) {
	o, _, err := s.GetByUIDWithStats(ctx, uid)
	return o, err
}

// GetByUIDWithStats is the cache-aside read: cache first, storage on a miss.
// A storage-backed read repopulates the cache so repeated reads of the same
// order stop hitting the database until the entry expires.
func (s *Service) GetByUIDWithStats(ctx context.Context, uid string) (*domain.Order, LookupStats, error) {
	var st LookupStats

	tCacheStart := time.Now()
	if order, ok := s.cache.Get(uid); ok {
		st.Source = SourceCache
		st.CacheMs = convertToMs(tCacheStart)
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, 0)

		s.logger.Info("Order fetched from cache",
			zap.String("order_uid", uid),
			zap.Float64("cache_ms", st.CacheMs),
		)

		return &order, st, nil
	}

	s.metrics.IncCacheMiss()
	st.CacheMs = convertToMs(tCacheStart)

	tDbStart := time.Now()
	order, err := s.storage.GetByUID(ctx, uid)
	if err != nil {
		s.logger.Error("Can't find order",
			zap.String("order_uid", uid),
			zap.Error(err),
			zap.Float64("cache_ms", st.CacheMs),
		)
		return nil, st, err
	}

	st.Source = SourceDB
	st.DBMs = convertToMs(tDbStart)

	s.cache.Set(uid, *order)

	s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.DBMs)
	s.logger.Info("Order fetched from DB",
		zap.String("order_uid", uid),
		zap.Float64("cache_ms", st.CacheMs),
		zap.Float64("db_ms", st.DBMs),
	)

	return order, st, nil
}
