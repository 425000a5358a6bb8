package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
)

type RouterOptions struct {
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Infra checks; not part of the console API.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", s.ListContracts)
		r.Post("/", s.CreateContract)
		r.Get("/stats", s.GetContractStats)
		r.Post("/search", s.SearchContracts)
		r.Route("/{contractId}", func(r chi.Router) {
			r.Get("/", s.GetContract)
			r.Patch("/", s.UpdateContract)
			r.Delete("/", s.DeleteContract)
			r.Post("/complete", s.CompleteContract)
		})
	})

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", s.ListCustomers)
		r.Post("/", s.CreateCustomer)
		r.Get("/stats", s.GetCustomerStats)
		r.Post("/search", s.SearchCustomers)
		r.Route("/{customerId}", func(r chi.Router) {
			r.Get("/", s.GetCustomer)
			r.Patch("/", s.UpdateCustomer)
			r.Delete("/", s.DeleteCustomer)
		})
	})

	r.Post("/vehicles", s.CreateVehicle)
	r.Get("/vehicles/{vehicleId}", s.GetVehicle)

	r.Post("/admin/reconcile", s.Reconcile)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request; 5xx at error, 4xx at warn.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"status", status,
			"method", r.Method,
			"path", r.URL.Path,
			"latency", time.Since(start),
			"bytes", ww.BytesWritten(),
		}
		switch {
		case status >= 500:
			logger.Error(r.Context(), "http request", args...)
		case status >= 400:
			logger.Warn(r.Context(), "http request", args...)
		default:
			logger.Info(r.Context(), "http request", args...)
		}
	})
}
