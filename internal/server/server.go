// Package server exposes the stored proxies as subscriptions over HTTP,
// next to the Prometheus metrics of the collect cycles.
package server

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"proxyscraper/internal/db"
	"proxyscraper/internal/logger"
	"proxyscraper/internal/metrics"
	"proxyscraper/internal/publishers"
	"proxyscraper/internal/scraper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

type Server struct {
	db       *gorm.DB
	exporter *metrics.Exporter
	cache    *gocache.Cache
}

// New builds a server over database. Rendered subscriptions are reused for
// ttl, or until Invalidate is called.
func New(database *gorm.DB, exporter *metrics.Exporter, ttl time.Duration) *Server {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Server{
		db:       database,
		exporter: exporter,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

// Invalidate drops every cached subscription, typically after a collect cycle.
func (s *Server) Invalidate() {
	s.cache.Flush()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/sub", s.handleSubscription)
	r.Get("/sub/{protocol}", s.handleSubscription)
	if s.exporter != nil {
		r.Handle("/metrics", s.exporter.Handler())
	}
	return r
}

// handleSubscription serves the stored proxies as a subscription document.
// Query parameters: limit caps the number of links, base64=true encodes the
// whole list.
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	protocol := chi.URLParam(r, "protocol")
	if protocol != "" && !slices.Contains(scraper.Protocols(), protocol) {
		http.Error(w, fmt.Sprintf("unknown protocol %q", protocol), http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	encode, _ := strconv.ParseBool(q.Get("base64"))

	key := fmt.Sprintf("%s|%d|%t", protocol, limit, encode)
	payload, ok := s.cached(key)
	if !ok {
		var protocols []string
		if protocol != "" {
			protocols = []string{protocol}
		}
		records, err := db.LoadProxies(s.db, protocols)
		if err != nil {
			logger.Log.Errorf("Loading proxies failed: %v", err)
			http.Error(w, "cannot load proxies", http.StatusInternalServerError)
			return
		}
		payload, err = publishers.GenerateSubscriptionPayload(records, map[string]interface{}{
			"limit":  limit,
			"base64": encode,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.cache.SetDefault(key, payload)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(payload))
}

func (s *Server) cached(key string) (string, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	payload, ok := v.(string)
	return payload, ok
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Log.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
		)
	})
}
