package router

import (
	"net/http"
	"time"

	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/config"
	"egzersizlab/internal/handlers"
	"egzersizlab/internal/session"
	"egzersizlab/internal/speech"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

// Deps carries everything the HTTP layer needs but does not own.
type Deps struct {
	Catalog   *catalog.Catalog
	Manager   *session.Manager
	Device    capture.Device
	Store     capture.ArtifactStore
	Announcer speech.Announcer
}

func Setup(log *zap.Logger, deps Deps) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions("egzersizlab", store))

	// --- Now that sessions are initialized, other middleware can use them ---
	router.Use(CSRFProtection())
	router.Use(UserLoaderMiddleware(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	// Locally stored recordings are served straight off disk.
	if config.Conf.Storage.Backend == "local" {
		router.Static("/recordings", config.Conf.Storage.LocalPath)
	}

	// Handlers and routes
	authHandler := handlers.NewAuthHandler(log)
	catalogHandler := handlers.NewCatalogHandler(log, deps.Catalog)
	sessionHandler := handlers.NewSessionHandler(log, deps.Manager)
	captureHandler := handlers.NewCaptureHandler(log, deps.Manager, deps.Device, deps.Store, config.Conf.Capture.TempDir)
	balanceHandler := handlers.NewBalanceHandler(log, deps.Manager, deps.Announcer, config.Conf.Engine.CountdownSeconds)
	resultsHandler := handlers.NewResultsHandler(log, deps.Manager)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/api/csrf", func(c *gin.Context) {
		token, _ := c.Get(csrfTokenContextKey)
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	router.POST("/api/login", limiter, authHandler.Login)
	router.POST("/api/register", limiter, authHandler.Register)
	router.POST("/api/logout", authHandler.Logout)

	authorized := router.Group("/api")
	authorized.Use(AuthRequired())
	{
		authorized.GET("/categories", catalogHandler.Categories)
		authorized.GET("/categories/:id/tests", catalogHandler.Tests)

		sessionRoutes := authorized.Group("/sessions")
		{
			sessionRoutes.POST("", sessionHandler.Create)
			sessionRoutes.GET("/:id", sessionHandler.Show)
			sessionRoutes.DELETE("/:id", sessionHandler.Close)
			sessionRoutes.POST("/:id/begin", sessionHandler.Begin)
			sessionRoutes.POST("/:id/instructions", sessionHandler.Instructions)
			sessionRoutes.POST("/:id/skip", sessionHandler.Skip)
			sessionRoutes.POST("/:id/advance", sessionHandler.Advance)
			sessionRoutes.POST("/:id/complete", sessionHandler.Complete)
			sessionRoutes.POST("/:id/measurement", sessionHandler.Measurement)
			sessionRoutes.POST("/:id/response", sessionHandler.Response)

			sessionRoutes.POST("/:id/capture/acquire", captureHandler.Acquire)
			sessionRoutes.POST("/:id/capture/start", captureHandler.Start)
			sessionRoutes.POST("/:id/capture/stop", captureHandler.Stop)
			sessionRoutes.POST("/:id/capture/retry", captureHandler.Retry)
			sessionRoutes.POST("/:id/capture/discard", captureHandler.Discard)
			sessionRoutes.POST("/:id/capture/upload", captureHandler.Upload)

			sessionRoutes.POST("/:id/balance/start", balanceHandler.Start)
			sessionRoutes.POST("/:id/balance/stop", balanceHandler.Stop)
			sessionRoutes.GET("/:id/balance", balanceHandler.Show)
			sessionRoutes.POST("/:id/balance/reset", balanceHandler.Reset)
			sessionRoutes.POST("/:id/balance/result", balanceHandler.Result)

			sessionRoutes.POST("/:id/submit", resultsHandler.Submit)
		}

		authorized.GET("/results/summary", resultsHandler.Summary)
	}

	return router
}
