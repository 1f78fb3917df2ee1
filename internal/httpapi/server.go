package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/normalize"
)

// Trading is the operation set the HTTP front-end exposes.
type Trading interface {
	GetAccountStatus(ctx context.Context) (domain.Result[domain.AccountStatus], error)
	ListPositions(ctx context.Context) (domain.Result[[]domain.Position], error)
	ListOrders(ctx context.Context, q domain.OrderQuery) (domain.Result[[]domain.Order], error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Result[domain.Order], error)
}

// Server serves the account, position and order API.
type Server struct {
	svc       Trading
	log       *slog.Logger
	staticDir string
}

// NewServer creates a new HTTP server over svc. When staticDir is non-empty
// its files are served at the root.
func NewServer(svc Trading, log *slog.Logger, staticDir string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, log: log, staticDir: staticDir}
}

// RegisterRoutes registers all API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/account_info", s.handleAccount)
		r.Get("/positions", s.handlePositions)
		r.Get("/positions/orders", s.handleOrders)
		r.Post("/orders", s.handlePlaceOrder)
		r.Get("/screen_stocks", s.handleScreenStocks)
	})
	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)
	s.RegisterRoutes(r)
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.GetAccountStatus(r.Context())
	respond(s, w, r, http.StatusOK, res, err)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ListPositions(r.Context())
	respond(s, w, r, http.StatusOK, res, err)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrderQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.ListOrders(r.Context(), q)
	respond(s, w, r, http.StatusOK, res, err)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := s.svc.PlaceOrder(r.Context(), req)
	respond(s, w, r, http.StatusCreated, res, err)
}

// handleScreenStocks is a placeholder until a screener is wired in.
func (s *Server) handleScreenStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ScreenStocksResponse{Stocks: []string{}})
}

func parseOrderQuery(r *http.Request) (domain.OrderQuery, error) {
	q := domain.OrderQuery{
		Status: domain.OrderStatusFilter(r.URL.Query().Get("status")),
		Limit:  domain.DefaultOrderLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, &domain.ValidationError{Field: "limit", Reason: "must be an integer, got " + strconv.Quote(v)}
		}
		q.Limit = n
	}
	return q, nil
}

// respond writes a facade result. Success uses status; a provider failure
// is a 500 carrying the translated message.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, status int, res domain.Result[T], err error) {
	if err != nil {
		var verr *domain.ValidationError
		var nerr *normalize.Error
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.As(err, &nerr):
			s.log.Error("normalizing provider response",
				"path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()), "error", err)
			writeError(w, http.StatusInternalServerError, nerr.Error())
		default:
			s.log.Error("handling request", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if e, failed := res.Err(); failed {
		writeError(w, http.StatusInternalServerError, e.Message)
		return
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.ErrorValue{Message: msg})
}
