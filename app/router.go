package app

import (
	"bitwise74/dropgate/app/admin"
	"bitwise74/dropgate/app/file"
	"bitwise74/dropgate/app/root"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/internal/service"
	"bitwise74/dropgate/pkg/middleware"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options are the router settings that don't belong in Deps
type Options struct {
	CORSOrigins []string
	// RateLimiter limits /api per client IP, nil disables it. The caller
	// owns it and stops it on shutdown.
	RateLimiter *middleware.RateLimiter
	// Cache stores rendered interstitial pages, nil means a memory store
	Cache     persist.CacheStore
	CacheTTL  time.Duration
	Turnstile middleware.TurnstileConfig
}

// Close stops the background work started for the options.
func (o Options) Close() {
	if o.RateLimiter != nil {
		o.RateLimiter.Stop()
	}
}

// adPageStrategy caches interstitial pages by URI, except those whose
// target holds a passcode.
func adPageStrategy(g *service.AdGate) cache.GetCacheStrategyByRequest {
	return func(c *gin.Context) (bool, cache.Strategy) {
		if !g.Cacheable(c.Query(service.AdNextParam)) {
			return false, cache.Strategy{}
		}

		return cache.CacheStrategyRequestURI(c)
	}
}

func NewRouter(d *internal.Deps, o Options) *gin.Engine {
	router := gin.New()

	if len(o.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("admin"); v != "" {
					fields = append(fields, zap.String("admin", v))
				}

				return fields
			},
		}),
		middleware.NewMetricsMiddleware(),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 8 << 20
	router.SetHTMLTemplate(file.Templates())

	if o.Cache == nil {
		o.Cache = persist.NewMemoryStore(time.Minute)
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = time.Minute
	}

	adminOnly := middleware.NewAdminMiddleware(d.Tokens, model.RoleAdmin)
	turnstile := middleware.NewTurnstileMiddleware(o.Turnstile)

	// GET /metrics			-> Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// GET /d/:slug			-> Downloads a file, through the ad page first
	router.GET("/d/:slug", middleware.NewAdGateMiddleware(d.AdGate), func(c *gin.Context) { file.FileRetrieve(c, d) })

	// GET /ad?next=		-> Ad interstitial that forwards to next
	router.GET(d.AdGate.Path, cache.Cache(o.Cache, o.CacheTTL, cache.WithCacheStrategyByRequest(adPageStrategy(d.AdGate))), func(c *gin.Context) { file.Interstitial(c, d) })

	m := router.Group("/api")
	if o.RateLimiter != nil {
		m.Use(o.RateLimiter.Handler())
	}
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// POST /api/files         	-> Uploads a new file
		m.POST("/files", turnstile, middleware.BodySizeLimiter(d.MaxUploadSize+(1<<20)), func(c *gin.Context) { file.FileUpload(c, d) })
	}

	a := m.Group("/admin", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/admin/login	-> Exchanges credentials for a token
		a.POST("/login", func(c *gin.Context) { admin.AdminLogin(c, d) })

		// GET /api/admin/files		-> Lists stored files
		a.GET("/files", adminOnly, func(c *gin.Context) { admin.FileList(c, d) })

		// PUT /api/admin/files/:id	-> Toggles the privacy of a file
		a.PUT("/files/:id", adminOnly, func(c *gin.Context) { admin.FileUpdate(c, d) })

		// DELETE /api/admin/files/:id	-> Deletes a file
		a.DELETE("/files/:id", adminOnly, func(c *gin.Context) { admin.FileDelete(c, d) })
	}

	return router
}
