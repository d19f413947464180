package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuscore/backend/internal/handlers"
	"github.com/campuscore/backend/internal/logger"
	"github.com/campuscore/backend/internal/repository"
	"github.com/campuscore/backend/internal/repository/postgres"
	"github.com/campuscore/backend/internal/service/auth"
	"github.com/campuscore/backend/internal/service/userrole"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log := logger.New(c.LogLevel)
	if c.Environment != "dev" {
		log = logger.NewJSON(c.LogLevel)
	}

	// Connect to the database and run migrations
	pool, err := repository.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		SecretKey:       c.JWTSecret,
		Issuer:          c.JWTIssuer,
		Audience:        c.JWTAudience,
		AccessTokenTTL:  time.Duration(c.AccessTokenMinutes) * time.Minute,
		RefreshTokenTTL: time.Duration(c.RefreshTokenDays) * 24 * time.Hour,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating token issuer. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, issuer, storage, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	userRoleService, err := userrole.NewService(storage, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating user role service. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, userRoleService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		pool:       pool,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close connections gracefully
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}

// Close releases the database pool
func (s *ServerApp) Close() {
	s.pool.Close()
}
