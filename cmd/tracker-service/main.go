package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codetrack/internal/catalog"
	"codetrack/internal/common/docstore"
	commonmw "codetrack/internal/common/http/middleware"
	"codetrack/internal/common/kv"
	"codetrack/internal/tracker/auth"
	"codetrack/internal/tracker/controller"
	"codetrack/internal/tracker/repository"
	"codetrack/internal/tracker/service"
	"codetrack/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/tracker_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := buildLocalStore(appCfg.LocalStore)
	if err != nil {
		logger.Error(context.Background(), "init local store failed", zap.Error(err))
		return
	}
	defer func() {
		_ = store.Close()
	}()
	localRepo := repository.NewLocalRepository(store)

	remote, err := buildRemoteStore(appCfg.Remote)
	if err != nil {
		logger.Error(context.Background(), "init remote store failed", zap.Error(err))
		return
	}

	engine := service.NewReconciler(localRepo, remote)
	defer engine.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	standardCatalog := catalog.NewLoader(appCfg.Catalog.Source).Load(loadCtx)
	cancelLoad()

	registry := service.NewRegistry(localRepo, engine)
	if err := registry.Initialize(context.Background(), standardCatalog); err != nil {
		logger.Error(context.Background(), "init registry failed", zap.Error(err))
		return
	}

	authService := auth.NewService(appCfg.Auth)
	authService.Subscribe(func(ctx context.Context, identity string, signedIn bool) {
		engine.OnIdentityChanged(ctx, identity, signedIn)
		if err := registry.Reload(ctx); err != nil {
			logger.Error(ctx, "reload after session change failed", zap.Error(err))
		}
	})

	httpServer := buildHTTPServer(appCfg, localRepo, engine, registry, authService)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "tracker http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	// Detached remote writes drain before the local store closes.
	engine.WaitForMirror()
}

func buildLocalStore(cfg LocalStoreConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory failed: %w", err)
			}
		}
		return kv.NewSQLiteStore(cfg.SQLite.Path)
	case "redis":
		return kv.NewRedisStoreWithConfig(cfg.Redis)
	case "memory":
		return kv.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown localStore backend %q", cfg.Backend)
}

func buildRemoteStore(cfg RemoteConfig) (docstore.DocumentStore, error) {
	if !cfg.Enabled {
		// Sign-in still works without a durable remote; documents live for
		// the process lifetime only.
		logger.Warn(context.Background(), "remote store disabled, sync is in-memory only")
		return docstore.NewMemoryStore(), nil
	}
	store, err := docstore.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func buildHTTPServer(cfg *AppConfig, localRepo *repository.LocalRepository, engine *service.Reconciler, registry *service.Registry, authService *auth.Service) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.IdentityContext(authService.CurrentIdentity))
	router.Use(requestLogger())

	// The catalog file is always served fresh so a catalog update does not
	// wait out client caches.
	catalogFile := filepath.Join(cfg.Catalog.WebRoot, "problems.json")
	router.GET("/problems.json", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.File(catalogFile)
	})

	api := router.Group("/api/v1")

	problemController := controller.NewProblemController(registry, engine, localRepo)
	problems := api.Group("/problems")
	problems.GET("", problemController.List)
	problems.POST("", problemController.Create)
	problems.GET("/stats", problemController.Stats)
	problems.GET("/:id", problemController.Get)
	problems.PUT("/:id", problemController.Update)
	problems.DELETE("/:id", problemController.Delete)

	progressController := controller.NewProgressController(registry, engine, localRepo)
	problems.PUT("/:id/completion", progressController.SetCompletion)
	problems.PUT("/:id/retry", progressController.SetRetry)
	problems.GET("/:id/notes", progressController.GetNotes)
	problems.PUT("/:id/notes", progressController.PutNotes)
	api.GET("/activities", progressController.ListActivities)
	api.POST("/activities", progressController.AddActivity)

	sessionController := controller.NewSessionController(authService, engine, registry)
	session := api.Group("/session")
	session.GET("", sessionController.Current)
	session.POST("/login", sessionController.Login)
	session.POST("/logout", sessionController.Logout)
	session.POST("/sync", sessionController.Sync)

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
