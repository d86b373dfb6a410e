package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"order-service/internal/application/service"
	"order-service/internal/domain"
	"order-service/internal/observability"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

type Service interface {
	CreateWithStats(ctx context.Context, req *domain.CreateOrder) (*domain.Order, service.CreateStats, error)
	GetByUIDWithStats(ctx context.Context, uid string) (*domain.Order, service.LookupStats, error)
}

type Server struct {
	service Service
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
}

func New(svc Service, logger *zap.Logger, metrics observability.Metrics) *Server {
	s := &Server{
		service: svc,
		router:  chi.NewRouter(),
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		ServerTimingApp(s.metrics),
	)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Post("/api/orders", s.createOrder)
	s.router.Get("/api/orders/{order_uid}", s.getOrder)

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONStatus(w, http.StatusNotFound, map[string]string{"status": "Not Found"})
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "order_uid")
	if _, err := uuid.Parse(uid); err != nil {
		s.logger.Warn("malformed order_uid",
			zap.String("order_uid", uid),
			zap.Error(err),
		)
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": domain.ErrBadOrderUID.Error()})
		return
	}

	order, st, err := s.service.GetByUIDWithStats(r.Context(), uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "Order not found!"})
			return
		}
		writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"error": "Order query error"})
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "db", st.DBMs, "")
	observability.AppendServerTiming(w, "source", 0, string(st.Source))
	w.Header().Set("X-Source", string(st.Source))
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-DB-Time", st.DBMs)

	writeJSONStatus(w, http.StatusOK, order)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req domain.CreateOrder
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		s.logger.Error("Error while decoding JSON",
			zap.Error(err),
		)
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if err := validateCreateOrder(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, st, err := s.service.CreateWithStats(r.Context(), &req)
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to create order",
		})
		return
	}

	observability.AppendServerTiming(w, "db_write", st.DBWriteMs, "")

	writeJSONStatus(w, http.StatusCreated, map[string]string{"order_uid": order.OrderUID})
}

func validateCreateOrder(req *domain.CreateOrder) error {
	if req.TrackNumber == "" {
		return errors.New("track_number is required")
	}
	if req.CustomerID == "" {
		return errors.New("customer_id is required")
	}
	if req.Payment.Transaction == "" {
		return errors.New("payment.transaction is required")
	}
	return nil
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler { return s.router }
