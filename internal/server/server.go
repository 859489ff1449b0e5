package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"photobox/internal/handler"
	"photobox/internal/middleware"
	"photobox/internal/qrauth"
	"photobox/internal/realtime"
	"photobox/internal/storage"
	"photobox/internal/store"
	"photobox/internal/token"
)

type Config struct {
	CORSOrigin string
}

type Server struct {
	db          *sql.DB
	cfg         Config
	hub         *realtime.Hub
	tokens      *token.Service
	userStore   *store.UserStore
	blobs       storage.Store
	authH       *handler.AuthHandler
	mediaH      *handler.MediaHandler
	qrAuthH     *handler.QRAuthHandler
	sweeper     *qrauth.Sweeper
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *token.Service, blobs storage.Store, cfg Config, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	mediaStore := store.NewMediaStore(db)

	tickets := qrauth.NewTicketStore()
	broker := qrauth.NewBroker(tickets, tokens, userStore, logger.With("component", "qrauth"))
	sweeper := qrauth.NewSweeper(tickets, logger.With("component", "qrauth"))

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		tokens:      tokens,
		userStore:   userStore,
		blobs:       blobs,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		mediaH:      handler.NewMediaHandler(mediaStore, blobs, hub, logger.With("component", "media")),
		qrAuthH:     handler.NewQRAuthHandler(broker, logger.With("component", "qrauth")),
		sweeper:     sweeper,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Start launches the ticket sweeper. Stop undoes it.
func (s *Server) Start(ctx context.Context) {
	s.sweeper.Start(ctx)
}

func (s *Server) Stop() {
	s.sweeper.Stop()
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/refresh", s.authH.Refresh)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// QR login flow. Generate authenticates inside the broker; scan and
	// status come from a device that is not logged in yet.
	outerMux.HandleFunc("POST /api/qr-auth/generate", s.qrAuthH.Generate)
	outerMux.HandleFunc("POST /api/qr-auth/scan/{ticketKey}", s.rateLimitedHandler(s.qrAuthH.Scan))
	outerMux.HandleFunc("GET /api/qr-auth/status/{ticketKey}", s.qrAuthH.Status)

	// WebSocket upgrade authenticates via query parameter.
	outerMux.HandleFunc("GET /ws", realtime.Handler(s.hub, s.tokens, s.logger.With("component", "realtime")))

	// Locally stored blobs are served straight off disk.
	if local, ok := s.blobs.(*storage.Local); ok {
		outerMux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(local.Dir()))))
	}

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/upload/file", s.mediaH.Upload)
	protectedMux.HandleFunc("GET /api/gallery", s.mediaH.List)
	protectedMux.HandleFunc("DELETE /api/gallery/{id}", s.mediaH.Delete)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	h := middleware.CORS(s.cfg.CORSOrigin)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
