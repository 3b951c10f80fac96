package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/taskward/taskward/internal/config/auth-service"
	"github.com/taskward/taskward/internal/domain/audit"
	"github.com/taskward/taskward/internal/obs"
	"github.com/taskward/taskward/internal/password"
	kafkarepo "github.com/taskward/taskward/internal/repository/kafka"
	pg "github.com/taskward/taskward/internal/repository/postgres"
	authsvc "github.com/taskward/taskward/internal/services/auth"
	"github.com/taskward/taskward/internal/token"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*http.Server, func(), error) {
	principalRepo := pg.NewPrincipalRepo(db)
	sessionRepo := pg.NewSessionRepo(db)
	tx := pg.NewTransactor(db, logger)

	var sink audit.Sink = audit.NopSink{}
	sinkClose := func() {}
	if cfg.Audit.Enable {
		ks := kafkarepo.NewAuditSink(cfg.Audit.Brokers, cfg.Audit.Topic, logger)
		sink = ks
		sinkClose = func() { _ = ks.Close() }
	}

	uc := authsvc.NewUsecase(
		logger,
		principalRepo,
		sessionRepo,
		tx,
		token.NewCodec([]byte(cfg.Auth.JWTSecret)),
		password.NewHasher(cfg.Auth.BcryptCost),
		sink,
		obs.NewAuthMetrics(prometheus.DefaultRegisterer),
		authsvc.Config{
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
	)

	controller := authsvc.NewController(logger, uc, authsvc.CookieOpts{
		Name:   cfg.Auth.CookieName,
		Domain: cfg.Auth.CookieDomain,
		Path:   cfg.Auth.CookiePath,
		Secure: cfg.Auth.CookieSecure,
	}, cfg.Auth.RefreshTTL)

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), authsvc.RequestIDMiddleware(), cors(cfg.Server.CORSOrigins))

	api := engine.Group("/api/v1")
	// Admission control is an external collaborator; nothing is mounted here,
	// so the hook admits everything until one is wired in.
	controller.Routes(api, authsvc.Admission(nil))

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(engine, "http.server"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return httpSrv, sinkClose, nil
}

func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
