package httpapi

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	authApp "storefront/internal/application/auth"
	cartApp "storefront/internal/application/cart"
	catalogApp "storefront/internal/application/catalog"
	reportsApp "storefront/internal/application/reports"
	reviewApp "storefront/internal/application/review"
	sessionApp "storefront/internal/application/session"
	authDomain "storefront/internal/domain/auth"
	sessionDomain "storefront/internal/domain/session"
	"storefront/internal/infra/memory"
	authinfra "storefront/internal/infrastructure/auth"
	"storefront/internal/infrastructure/config"
	"storefront/internal/infrastructure/csrf"
	"storefront/internal/infrastructure/external/oauth"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/infrastructure/persistence/postgres"
	"storefront/internal/infrastructure/sessionstore"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeForbidden          = "AUTH_FORBIDDEN"
	errCodeNotFound           = "NOT_FOUND"
	errCodeConflict           = "CONFLICT"
	errCodeRateLimited        = "RATE_LIMITED"
	errCodeSessionUnknown     = "SESSION_UNKNOWN"
	errCodeInternal           = "INTERNAL_ERROR"

	refreshCookieName = "refresh_token"
	sessionHeader     = "X-Session-ID"
	csrfHeader        = "X-CSRF-Token"

	resetTokenTTL = time.Hour
)

// Server 封裝 HTTP 路由與所有 use case 依賴。
type Server struct {
	engine *gin.Engine
	db     *sql.DB
	store  *memory.Store

	loginUC    *authApp.LoginUseCase
	registerUC *authApp.RegisterUseCase
	logoutUC   *authApp.LogoutUseCase
	resetUC    *authApp.PasswordResetUseCase
	oauthUC    *authApp.OAuthUseCase
	authz      *authApp.Authorizer
	tokenSvc   *authinfra.JWTIssuer

	queryUC   *catalogApp.QueryUseCase
	adminUC   *catalogApp.AdminUseCase
	cartUC    *cartApp.UseCase
	reviewUC  *reviewApp.UseCase
	reportsUC *reportsApp.UseCase

	sessions *sessionApp.Manager
	csrf     *csrf.TokenCache
	metrics  *metrics.Registry
	limiter  *loginLimiter
	upgrader websocket.Upgrader
}

// storefrontRepos 聚合單一後端（postgres 或記憶體）提供的全部儲存介面。
type storefrontRepos struct {
	users interface {
		authApp.UserRepository
		reportsApp.UserCounter
	}
	authSessions authDomain.SessionStore
	resets       authApp.ResetStore
	catalog      catalogApp.CatalogRepository
	carts        cartApp.CartRepository
	reviews      reviewApp.ReviewRepository
}

// NewServer 建立 API 伺服器。db 為 nil 時改用記憶體儲存並寫入種子資料；
// shared 是跨分頁活動儲存的 Provider（正式環境為 Redis），nil 時退回記憶體。
// extraSinks 額外訂閱 session 狀態變化（稽核、通知等）。
func NewServer(cfg config.Config, db *sql.DB, shared sessionstore.Provider, extraSinks ...sessionApp.Sink) *Server {
	store := memory.NewStore()

	var repos storefrontRepos
	if db != nil {
		authRepo := postgres.NewAuthRepo(db)
		repos = storefrontRepos{
			users:        authRepo,
			authSessions: authRepo,
			resets:       authRepo,
			catalog:      postgres.NewCatalogRepo(db),
			carts:        postgres.NewCartRepo(db),
			reviews:      postgres.NewReviewRepo(db),
		}
	} else {
		store.SeedUsers()
		store.SeedCatalog()
		repos = storefrontRepos{
			users:        store,
			authSessions: store,
			resets:       store,
			catalog:      store,
			carts:        store,
			reviews:      store,
		}
	}

	tokenSvc := authinfra.NewJWTIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL, repos.authSessions, repos.users)
	hasher := authinfra.BcryptHasher{}
	logoutUC := authApp.NewLogoutUseCase(tokenSvc)

	reg := metrics.NewRegistry()
	if shared == nil {
		shared = sessionstore.NewMemoryProvider()
	}
	sinks := append([]sessionApp.Sink{reg}, extraSinks...)
	manager := sessionApp.NewManager(
		sessionstore.NewMemoryProvider(),
		shared,
		sessionApp.Config{
			Thresholds: sessionDomain.Thresholds{
				Timeout:     cfg.Session.Timeout,
				WarningLead: cfg.Session.WarningLead,
			},
			PollInterval: cfg.Session.PollInterval,
			LogoutGrace:  cfg.Session.LogoutGrace,
		},
		logoutUC,
		sessionApp.LogReporter{},
		sinks...,
	)

	s := &Server{
		db:         db,
		store:      store,
		loginUC:    authApp.NewLoginUseCase(repos.users, hasher, tokenSvc),
		registerUC: authApp.NewRegisterUseCase(repos.users, hasher),
		logoutUC:   logoutUC,
		resetUC:    authApp.NewPasswordResetUseCase(repos.users, repos.resets, hasher, notify.NewMailer(cfg.Mailer), resetTokenTTL),
		oauthUC:    authApp.NewOAuthUseCase(repos.users, oauth.NewClient(cfg.OAuth), tokenSvc),
		authz:      authApp.NewAuthorizer(repos.users),
		tokenSvc:   tokenSvc,
		queryUC:    catalogApp.NewQueryUseCase(repos.catalog),
		adminUC:    catalogApp.NewAdminUseCase(repos.catalog),
		cartUC:     cartApp.NewUseCase(repos.carts, repos.catalog),
		reviewUC:   reviewApp.NewUseCase(repos.reviews, repos.catalog),
		reportsUC:  reportsApp.NewUseCase(repos.catalog, repos.reviews, repos.users, manager),
		sessions:   manager,
		csrf:       csrf.NewTokenCache(2 * time.Hour),
		metrics:    reg,
		limiter:    newLoginLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.buildEngine()
	return s
}

func (s *Server) buildEngine() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.ginLogger(), corsMiddleware())

	engine.GET("/api/ping", s.handlePing)
	engine.GET("/api/health", s.handleHealth)
	engine.GET("/metrics", s.metrics.Handler())

	authGroup := engine.Group("/api/auth")
	{
		authGroup.POST("/login", s.rateLimitLogin(), s.handleLogin)
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/refresh", s.handleTokenRefresh)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.POST("/password/forgot", s.handlePasswordForgot)
		authGroup.POST("/password/reset", s.handlePasswordReset)
		authGroup.POST("/oauth/:provider", s.handleOAuth)
		authGroup.GET("/csrf", s.handleCSRFToken)
	}

	engine.GET("/api/products", s.handleProductSearch)
	engine.GET("/api/products/:id", s.handleProductDetail)
	engine.GET("/api/products/:id/reviews", s.handleReviewList)
	engine.GET("/api/categories", s.handleCategoryList)

	engine.POST("/api/products/:id/reviews",
		s.requireAuth(authApp.PermReviewWrite), s.requireCSRF(), s.handleReviewSubmit)

	cart := engine.Group("/api/cart", s.requireAuth(authApp.PermCartUse))
	{
		cart.GET("", s.handleCartGet)
		cart.POST("/items", s.requireCSRF(), s.handleCartAdd)
		cart.PUT("/items/:productID", s.requireCSRF(), s.handleCartUpdate)
		cart.DELETE("/items/:productID", s.requireCSRF(), s.handleCartRemove)
		cart.DELETE("", s.requireCSRF(), s.handleCartClear)
	}

	sess := engine.Group("/api/session")
	{
		sess.POST("/activity", s.handleSessionActivity)
		sess.GET("/state", s.handleSessionState)
		sess.POST("/refresh", s.handleSessionRefresh)
		sess.POST("/logout", s.handleSessionLogout)
		sess.GET("/ws", s.handleSessionWS)
	}

	admin := engine.Group("/api/admin")
	{
		manage := admin.Group("", s.requireAuth(authApp.PermCatalogManage))
		{
			manage.POST("/products", s.handleAdminProductCreate)
			manage.PUT("/products/:id", s.handleAdminProductUpdate)
			manage.DELETE("/products/:id", s.handleAdminProductDelete)
			manage.POST("/categories", s.handleAdminCategoryCreate)
			manage.PUT("/categories/:id", s.handleAdminCategoryUpdate)
			manage.DELETE("/categories/:id", s.handleAdminCategoryDelete)
			manage.DELETE("/reviews/:id", s.handleAdminReviewDelete)
		}
		admin.GET("/dashboard", s.requireAuth(authApp.PermDashboardView), s.handleDashboard)
		admin.GET("/dashboard/sessions", s.requireAuth(authApp.PermDashboardView), s.handleDashboardSessions)
	}

	s.engine = engine
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions 回傳 session manager，關閉流程需要呼叫 Shutdown。
func (s *Server) Sessions() *sessionApp.Manager {
	return s.sessions
}
