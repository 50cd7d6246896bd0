// Package api is the HTTP boundary: gin routing, bearer authentication and
// the mapping from service errors to status codes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/auth"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, caller services.Caller) (*models.User, error)
	VerifyToken(token string) (*auth.Claims, error)
}

type SearchService interface {
	PerformSearch(ctx context.Context, caller services.Caller, query string, maxResults int, save bool) (*services.SearchResult, error)
}

type ImageService interface {
	GenerateImage(ctx context.Context, caller services.Caller, prompt string, p models.ImageParameters, save bool) (*services.ImageResult, error)
}

type RecordService interface {
	ListHistory(ctx context.Context, caller services.Caller, kind models.RecordKind, page services.Pagination) (*services.History, error)
	DeleteRecord(ctx context.Context, caller services.Caller, kind models.RecordKind, id string) error
}

type DashboardService interface {
	Dashboard(ctx context.Context, caller services.Caller) (*models.Dashboard, error)
}

type AdminService interface {
	ListUsers(ctx context.Context, caller services.Caller) ([]models.User, error)
	SystemStats(ctx context.Context, caller services.Caller) (*models.SystemStats, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services groups everything the handlers call into.
type Services struct {
	Users     UserService
	Search    SearchService
	Image     ImageService
	Records   RecordService
	Dashboard DashboardService
	Admin     AdminService
	DB        Pinger
}

type Server struct {
	address string
	engine  *gin.Engine
	svc     Services
	logger  logging.Logger
}

// NewServer builds the router. An empty origins list allows any origin.
func NewServer(address string, origins []string, svc Services, l logging.Logger) *Server {
	s := &Server{
		address: address,
		engine:  gin.New(),
		svc:     svc,
		logger:  l.With("module", "http_server"),
	}

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}

	s.engine.Use(gin.Recovery(), s.requestLogger(), cors.New(corsConfig))
	s.routes()

	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", s.health)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/refresh", s.refresh)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/profile", s.requireAuth(), s.profile)
	}

	protected := r.Group("", s.requireAuth())
	{
		protected.POST("/search", s.search)
		protected.GET("/search/history", s.history(models.KindSearch))
		protected.DELETE("/search/:id", s.deleteRecord(models.KindSearch))

		protected.POST("/image", s.image)
		protected.GET("/image/history", s.history(models.KindImage))
		protected.DELETE("/image/:id", s.deleteRecord(models.KindImage))

		protected.GET("/dashboard", s.dashboard)
		// older clients delete through the dashboard paths
		protected.DELETE("/dashboard/search/:id", s.deleteRecord(models.KindSearch))
		protected.DELETE("/dashboard/image/:id", s.deleteRecord(models.KindImage))
	}

	admin := r.Group("/admin", s.requireAuth())
	{
		admin.GET("/users", s.listUsers)
		admin.GET("/stats", s.systemStats)
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.svc.DB != nil {
		if err := s.svc.DB.PingContext(ctx); err != nil {
			s.logger.Warn(ctx, "health: database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected", "timestamp": time.Now().UTC()})
}
