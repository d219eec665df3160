package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nftkit/allowlist-go/pkg/allowlist"
	"github.com/nftkit/allowlist-go/pkg/config"
	"github.com/nftkit/allowlist-go/pkg/contractCaller"
	"github.com/nftkit/allowlist-go/pkg/persistence"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

/*
Server answers proof queries for one allow-list so a mint frontend can fetch the
bytes32[] argument for mintAllowList without shipping the member file to browsers.

  GET  /health          liveness, plus the snapshot store health check when one is configured
  GET  /root            root and tree rules; compares against merkleRoot() when a contract is configured
  GET  /members         member addresses in build order
  GET  /proof/:address  proof for one address; ?root=0x.. selects another cached list
  POST /verify          { address | leaf, proof, root? } -> { valid }

Malformed proofs verify as false rather than failing the request.
*/

const shutdownTimeout = 5 * time.Second

// Server handles HTTP requests for an allow-list
type Server struct {
	list       *allowlist.AllowList
	cache      *allowlist.Cache
	caller     contractCaller.IContractCaller
	store      persistence.ITreePersistence
	logger     *zap.Logger
	httpServer *http.Server
}

// Option configures optional collaborators.
type Option func(*Server)

// WithCache lets /proof serve other lists by root.
func WithCache(cache *allowlist.Cache) Option {
	return func(s *Server) { s.cache = cache }
}

// WithContractCaller enables the on-chain root comparison on /root.
func WithContractCaller(caller contractCaller.IContractCaller) Option {
	return func(s *Server) { s.caller = caller }
}

// WithPersistence adds the snapshot store to /health.
func WithPersistence(store persistence.ITreePersistence) Option {
	return func(s *Server) { s.store = store }
}

// NewServer creates a new server instance
func NewServer(list *allowlist.AllowList, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.ServerConfig{}
	}

	s := &Server{
		list:   list,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	var limiter *rate.Limiter
	if limit := cfg.Limit(); limit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(limit) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(logger), rateLimit(limiter))

	router.GET("/health", s.handleHealth)
	router.GET("/root", s.handleRoot)
	router.GET("/members", s.handleMembers)
	router.GET("/proof/:address", s.handleProof)
	router.POST("/verify", s.handleVerify)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting allow-list proof server",
			"root", s.list.Root().Hex(),
			"members", s.list.Len(),
			"addr", s.httpServer.Addr,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests, then closes the listener.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
