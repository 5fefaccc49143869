package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/intelligrit/wingstack/internal/metrics"
	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/scraper"
	"github.com/intelligrit/wingstack/internal/store"
)

// Pipeline runs the extraction flows. *pipeline.Orchestrator satisfies it.
type Pipeline interface {
	ParseTrip(ctx context.Context, text string) model.TripResult
	ParseEmailQuote(ctx context.Context, text string) (*model.ParsedQuote, error)
	ParsePDFQuote(ctx context.Context, text string) (*model.ParsedQuote, error)
	Summarize(ctx context.Context, messages []model.Message) (string, error)
}

// PageFetcher turns a URL into readable text. *scraper.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Page, error)
}

// Server serves the trip, quote and chat API.
type Server struct {
	Store    *store.Store
	Pipeline Pipeline
	Fetcher  PageFetcher
	Logger   *slog.Logger
	Addr     string
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/extract", func(r chi.Router) {
			r.Post("/trip", s.handleExtractTrip)
			r.Post("/quote/email", s.handleExtractQuote(quoteFormatEmail))
			r.Post("/quote/pdf", s.handleExtractQuote(quoteFormatPDF))
			r.Post("/link", s.handleExtractLink)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", s.handleCreateTrip)
			r.Get("/", s.handleListTrips)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTrip)
				r.Patch("/", s.handlePatchTrip)
				r.Post("/quotes", s.handleCreateQuote)
				r.Get("/quotes", s.handleListQuotes)
				r.Post("/messages", s.handleAppendMessage)
				r.Get("/messages", s.handleListMessages)
				r.Get("/summary", s.handleGetSummary)
				r.Post("/summary", s.handleRefreshSummary)
			})
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger().Info("serving", "addr", "http://"+s.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// logRequests logs each request once it completes and records its latency
// against the matched route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		s.logger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed", elapsed,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
