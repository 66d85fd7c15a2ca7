package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/portdeck/portdeck/docs"
	"github.com/portdeck/portdeck/internal/app/api/handlers"
	mw "github.com/portdeck/portdeck/internal/app/api/middleware"
	"github.com/portdeck/portdeck/internal/app/service/checkout"
	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/provisioning"
	"github.com/portdeck/portdeck/internal/app/service/renewal"
	subsvc "github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/app/service/webhooklog"
	"github.com/portdeck/portdeck/internal/platform/gateway"
	cfgpkg "github.com/portdeck/portdeck/pkg/config"
	metrics "github.com/portdeck/portdeck/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request tracing only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Gateway    *gateway.Client
	Orders     order.Store
	Pool       port.Pool
	Subs       subsvc.Store
	Checkout   checkout.Manager
	Prov       provisioning.Manager
	Renew      renewal.Manager
	WebhookLog *webhooklog.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: health, swagger, gateway-facing confirmation legs
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Redirect callback: signature-gated, no customer auth (the browser
	// arrives straight from the gateway)
	handlers.RegisterPaymentCallbackRoutes(pub, d.Cfg, d.Log, d.Gateway, d.Orders, d.Prov, d.Renew)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())

	// Availability is public and advisory
	apiV1.GET("/availability", handlers.ApiCheckAvailability(d.Checkout))

	// Webhook auth is the body signature, not a bearer token
	handlers.RegisterPaymentWebhookRoutes(apiV1, d.Log, d.Gateway, d.Orders, d.Prov, d.Renew, d.WebhookLog)

	// Customer-facing APIs
	authed := apiV1.Group("/")
	authed.Use(mw.AuthMiddleware(d.Cfg))
	handlers.RegisterCheckoutRoutes(authed, d.Checkout)
	handlers.RegisterPortalRoutes(authed, d.Subs, d.Pool)

	// Back-office APIs
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(d.Cfg))
	handlers.RegisterAdminRoutes(admin, d.Log, d.Orders, d.Pool)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
