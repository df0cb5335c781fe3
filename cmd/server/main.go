package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/api"
	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	v1 "github.com/topmuch/qrsell-sub001/internal/api/v1"
	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/event"
	"github.com/topmuch/qrsell-sub001/internal/scheduler"
	schedulerjobs "github.com/topmuch/qrsell-sub001/internal/scheduler/jobs"
	"github.com/topmuch/qrsell-sub001/internal/service"
	jwtutil "github.com/topmuch/qrsell-sub001/pkg/jwt"
	systemlog "github.com/topmuch/qrsell-sub001/pkg/logger"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, systemLogStore, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	repos, err := openRepositories(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("open storage failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer repos.close()

	jwtPublicKey, err := jwtutil.LoadRSAPublicKey(cfg.Security.JWTPublicKey, cfg.Security.JWTPublicKeyFile)
	if err != nil {
		if !errors.Is(err, jwtutil.ErrPublicKeyNotConfigured) {
			logger.Fatal("load jwt public key failed", zap.Error(err))
		}
		logger.Warn("jwt public key not configured, seller routes will reject every request")
	}

	clk := clock.System()
	eventBus := event.NewBus()

	auditSvc := service.NewAuditService(repos.audit, logger)
	auditSvc.Subscribe(eventBus)

	sessionSvc := service.NewPromotionSessionService(
		repos.rules,
		repos.sessions,
		repos.products,
		repos.scans,
		eventBus,
		clk,
		logger,
	)
	ruleSvc := service.NewPromotionRuleService(
		repos.rules,
		repos.products,
		auditSvc,
		eventBus,
		clk,
		cfg.Promotion.MaxWindowMinutes,
		logger,
	)
	featuredSvc := service.NewFeaturedService(
		repos.sellers,
		repos.products,
		repos.rules,
		repos.scans,
		auditSvc,
		eventBus,
		clk,
		cfg.Promotion.TrendingWindow,
		logger,
	)

	retentionJob := schedulerjobs.NewRetentionJob(repos.scans, cfg.ScanEvents.Retention, clk, logger)
	sessionGaugeJob := schedulerjobs.NewSessionGaugeJob(repos.sessions, clk, logger)
	sessionGaugeJob.RefreshActiveSessions()

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		RetentionJob:    retentionJob,
		SessionGaugeJob: sessionGaugeJob,
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	trustedNetworks, err := middleware.ParseTrustedNetworks(cfg.Security.InternalTrustedCIDRs)
	if err != nil {
		logger.Fatal("parse security.internal_trusted_cidrs failed", zap.Error(err))
	}
	if isDebugMode {
		trustedNetworks = append(trustedNetworks,
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("::1/128"),
		)
	}
	internalAuth := middleware.InternalAuthConfig{
		Tokens:          []string{cfg.Security.InternalToken, cfg.Security.InternalTokenPrevious},
		TrustedNetworks: trustedNetworks,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	api.RegisterRoutes(router, api.Services{
		Sessions: sessionSvc,
		Rules:    ruleSvc,
		Featured: featuredSvc,
		Audit:    auditSvc,
		Ops:      v1.NewOpsHandler(systemLogStore, repos.ready, Version),
	}, api.Options{
		JWTPublicKey:       jwtPublicKey,
		Internal:           internalAuth,
		ScanRateLimitPerIP: cfg.RateLimit.ScansPerMinute,
		VisitorHashSecret:  cfg.Security.VisitorHashSecret,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func newLogger(cfg Config) (*zap.Logger, *systemlog.SystemLogStore, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger failed: %w", err)
	}

	logStore := systemlog.NewSystemLogStore(cfg.Log.BufferSize)
	logger = systemlog.WrapZapLogger(logger, logStore)
	return logger, logStore, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	port := strings.TrimSpace(os.Getenv("QRSELL_SERVER_PORT"))
	if port == "" {
		port = "8080"
	}

	resp, err := client.Get("http://localhost:" + port + "/health/ready")
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
