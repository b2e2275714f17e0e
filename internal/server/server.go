package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"sharepath/internal/calendar"
	"sharepath/internal/config"
	"sharepath/internal/database"
	"sharepath/internal/drafts"
	"sharepath/internal/handlers"
	"sharepath/internal/planner"
	"sharepath/internal/sqlite"
)

const rateLimitCleanupInterval = time.Minute

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer  *http.Server
	handler     *handlers.Handler
	db          database.DataStore
	redis       *redis.Client
	rateLimiter *RateLimiter
	stop        chan struct{}
	listener    net.Listener
	addr        string
}

// New creates and initializes a new server (does not start it)
func New(cfg *config.Config) (*Server, error) {
	log.Printf("Initializing data store at %s...", cfg.DBPath)
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}

	draftStore, redisClient, err := newDraftStore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	cal := calendar.New(cfg.Location)
	handler := handlers.New(db, draftStore, cal, planner.NewGreedyOptimizer(nil))
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      newHandler(handler, rateLimiter, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		handler:     handler,
		db:          db,
		redis:       redisClient,
		rateLimiter: rateLimiter,
		stop:        make(chan struct{}),
		addr:        cfg.ServerAddr,
	}, nil
}

// newDraftStore uses Redis when an address is configured and memory otherwise
func newDraftStore(cfg *config.Config) (drafts.Store, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Printf("[DRAFTS] Using in-memory draft store: ttl=%v", cfg.DraftTTL)
		return drafts.NewMemoryStore(cfg.DraftTTL), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := drafts.NewRedisStore(client, cfg.DraftTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Printf("[DRAFTS] Using redis draft store: addr=%s ttl=%v", cfg.RedisAddr, cfg.DraftTTL)
	return store, client, nil
}

// newHandler builds the middleware chain around the router
func newHandler(handler *handlers.Handler, rateLimiter *RateLimiter, allowedOrigins []string) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition"},
	})

	return loggingMiddleware(corsHandler.Handler(rateLimiter.Limit(setupRoutes(handler))))
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go s.rateLimiter.Run(rateLimitCleanupInterval, s.stop)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("[ERROR] Failed to close redis client: %v", err)
		}
	}
	return s.db.Close()
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	router.HandlerFunc(http.MethodGet, "/api/v1/health", handler.HandleHealthCheck)

	router.HandlerFunc(http.MethodGet, "/api/v1/places", handler.HandleListPlaces)
	router.HandlerFunc(http.MethodPost, "/api/v1/places", handler.HandleImportPlaces)
	router.HandlerFunc(http.MethodGet, "/api/v1/places/:id", handler.HandleGetPlace)
	router.HandlerFunc(http.MethodGet, "/api/v1/places/:id/nearby", handler.HandleNearbyPlaces)

	router.HandlerFunc(http.MethodPost, "/api/v1/drafts", handler.HandleCreateDraft)
	router.HandlerFunc(http.MethodGet, "/api/v1/drafts/:id", handler.HandleGetDraft)
	router.HandlerFunc(http.MethodDelete, "/api/v1/drafts/:id", handler.HandleDeleteDraft)
	router.HandlerFunc(http.MethodPost, "/api/v1/drafts/:id/actions", handler.HandleApplyAction)
	router.HandlerFunc(http.MethodPost, "/api/v1/drafts/:id/activities", handler.HandleImportActivities)
	router.HandlerFunc(http.MethodGet, "/api/v1/drafts/:id/days", handler.HandleListDraftDays)
	router.HandlerFunc(http.MethodGet, "/api/v1/drafts/:id/days/:day", handler.HandleGetDraftDay)
	router.HandlerFunc(http.MethodPost, "/api/v1/drafts/:id/days/:day/optimize", handler.HandleOptimizeDraftDay)
	router.HandlerFunc(http.MethodPost, "/api/v1/drafts/:id/save", handler.HandleSaveDraft)

	router.HandlerFunc(http.MethodGet, "/api/v1/trips", handler.HandleListTrips)
	router.HandlerFunc(http.MethodGet, "/api/v1/trips/:id", handler.HandleGetTrip)
	router.HandlerFunc(http.MethodPut, "/api/v1/trips/:id", handler.HandleUpdateTrip)
	router.HandlerFunc(http.MethodDelete, "/api/v1/trips/:id", handler.HandleDeleteTrip)
	router.HandlerFunc(http.MethodPost, "/api/v1/trips/:id/edit", handler.HandleEditTrip)
	router.HandlerFunc(http.MethodGet, "/api/v1/trips/:id/export", handler.HandleExportTrip)

	router.HandlerFunc(http.MethodGet, "/api/v1/calendar", handler.HandleCalendar)

	return router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
