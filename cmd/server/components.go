package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/0xsj/go-loom/internal/container"
	"github.com/0xsj/go-loom/internal/lib/cache"
	"github.com/0xsj/go-loom/internal/lib/database"
	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
	"github.com/0xsj/go-loom/internal/scheduler"
	"github.com/0xsj/go-loom/internal/scope"
)

// VisitRepository persists page visits.
type VisitRepository struct {
	db  *database.DB
	log logger.Logger
}

func NewVisitRepository(db *database.DB, log logger.Logger) *VisitRepository {
	return &VisitRepository{db: db, log: log.WithComponent("visit.repository")}
}

func (r *VisitRepository) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS visits (
			id         INTEGER PRIMARY KEY,
			path       TEXT NOT NULL,
			visited_at TIMESTAMP NOT NULL
		)`)
	return err
}

func (r *VisitRepository) Record(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visits (path, visited_at) VALUES (?, ?)`, path, time.Now())
	return err
}

func (r *VisitRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM visits`)
	return count, err
}

func (r *VisitRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM visits WHERE visited_at < ?`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VisitService tracks visits, caching the running total when a cache
// component is available.
type VisitService struct {
	repo    *VisitRepository
	cache   *cache.Cache // nil when the cache profile is inactive
	log     logger.Logger
	janitor *scheduler.Handle
}

func NewVisitService(repo *VisitRepository, c *cache.Cache, log logger.Logger) *VisitService {
	return &VisitService{repo: repo, cache: c, log: log.WithComponent("visit.service")}
}

const totalCacheKey = "visits:total"

func (s *VisitService) Track(ctx context.Context, path string) error {
	if err := s.repo.Record(ctx, path); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, totalCacheKey); err != nil {
			s.log.Warn("Cache invalidation failed", logger.Err(err))
		}
	}
	return nil
}

func (s *VisitService) Total(ctx context.Context) (int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, totalCacheKey); err == nil {
			var total int64
			if _, err := fmt.Sscan(cached, &total); err == nil {
				return total, nil
			}
		}
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, totalCacheKey, fmt.Sprint(total), time.Minute); err != nil {
			s.log.Warn("Cache write failed", logger.Err(err))
		}
	}
	return total, nil
}

// StartJanitor schedules the hourly prune of stale visits.
func (s *VisitService) StartJanitor() error {
	handle, err := scheduler.Get().ScheduleCron(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pruned, err := s.repo.Prune(ctx, 30*24*time.Hour)
		if err != nil {
			s.log.Error("Visit prune failed", logger.Err(err))
			return
		}
		s.log.Info("Visits pruned", logger.Int("rows", int(pruned)))
	}, "0 * * * *", time.UTC)
	if err != nil {
		return err
	}

	s.janitor = handle
	return nil
}

func (s *VisitService) StopJanitor() {
	if s.janitor != nil {
		s.janitor.Cancel()
	}
}

// Visitor is the request-scoped identity: one per boundary, shared by
// everything resolved under the same request.
type Visitor struct {
	ID string
}

func NewVisitor() *Visitor {
	return &Visitor{ID: uuid.NewString()}
}

// HTTPServer serves the demo endpoints on a chi router.
type HTTPServer struct {
	server *http.Server
	app    *App
	log    logger.Logger
}

func NewHTTPServer(app *App, addr string, timeouts ServerTimeouts, log logger.Logger) *HTTPServer {
	s := &HTTPServer{app: app, log: log.WithComponent("http.server")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestBoundary)
	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/graph", s.handleGraph)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
		IdleTimeout:  timeouts.Idle,
	}
	return s
}

type ServerTimeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// requestBoundary opens a request-scope boundary per HTTP request and
// clears it when the handler returns.
func (s *HTTPServer) requestBoundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := s.app.Container().OpenBoundary(manifest.ScopeRequest)
		if err != nil {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		defer func() {
			if err := s.app.Container().ClearBoundary(r.Context(), tok); err != nil {
				s.log.Warn("Boundary clear failed", logger.Err(err))
			}
		}()

		next.ServeHTTP(w, r.WithContext(scope.WithToken(r.Context(), tok)))
	})
}

func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := s.app.Container()

	service, err := container.GetAs[*VisitService](ctx, c, keyService)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	visitor, err := container.GetAs[*Visitor](ctx, c, keyVisitor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := service.Track(ctx, r.URL.Path); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := service.Total(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "visitor %s, visit %d\n", visitor.ID, total)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c := s.app.Container()
	if !c.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintf(w, "phase=%s components=%d\n", c.Phase(), len(c.Keys()))
}

func (s *HTTPServer) handleGraph(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.app.Container().Graph()); err != nil {
		s.log.Error("Graph encode failed", logger.Err(err))
	}
}

// Listen starts serving in the background; startup errors surface through
// the logger since ListenAndServe blocks.
func (s *HTTPServer) Listen() {
	s.log.Info("HTTP server listening", logger.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server failed", logger.Err(err))
		}
	}()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
