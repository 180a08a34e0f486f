// Package httpserver exposes the dashboard JSON API over gin.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/service"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "session_token"

const shutdownTimeout = 10 * time.Second

// Services groups the API's collaborators.
type Services struct {
	Auth         service.AuthService
	Accounts     service.AccountService
	Scrape       service.ScrapeService
	Transactions service.TransactionService
	Stats        service.StatsService
	Rules        service.RuleService
	Settings     service.SettingsService
}

// Options tune transport details.
type Options struct {
	AllowedOrigins []string
	SecureCookie   bool
	SessionTTL     time.Duration
}

// Server wires services into gin handlers.
type Server struct {
	svc    Services
	opts   Options
	log    *zap.Logger
	engine *gin.Engine
}

// New builds the router with the middleware chain and every route.
func New(svc Services, opts Options, logger *zap.Logger) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	s := &Server{svc: svc, opts: opts, log: logger}

	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(RequestIDs(), Recover(logger), Logging(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	api.GET("/auth", s.authStatus)
	api.POST("/auth", s.login)
	api.PUT("/auth", s.setup)
	api.DELETE("/auth", s.logout)

	priv := api.Group("", RequireSession(svc.Auth, logger))
	{
		priv.POST("/auth/password", s.changePassword)

		priv.GET("/accounts", s.listAccounts)
		priv.POST("/accounts", s.createAccount)
		priv.GET("/accounts/:id", s.getAccount)
		priv.PUT("/accounts/:id", s.updateAccount)
		priv.DELETE("/accounts/:id", s.deleteAccount)
		priv.GET("/accounts/:id/logs", s.accountLogs)
		priv.GET("/institutions", s.institutions)

		priv.POST("/scrape", s.scrape)
		priv.GET("/transactions", s.transactions)
		priv.GET("/stats", s.stats)

		priv.GET("/settings", s.getSettings)
		priv.PUT("/settings", s.putSettings)
		priv.GET("/settings/categories", s.listRules)
		priv.POST("/settings/categories", s.createRule)
		priv.DELETE("/settings/categories", s.deleteRule)
		priv.POST("/settings/categories/apply", s.applyRules)
		priv.GET("/categories", s.categories)
	}

	s.engine = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			_ = srv.Close()
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, int(s.opts.SessionTTL/time.Second), "/", "", s.opts.SecureCookie, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.opts.SecureCookie, true)
}
