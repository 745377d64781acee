package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DriveFM/cache"
	"DriveFM/config"
	"DriveFM/core/events"
	"DriveFM/core/handle"
	"DriveFM/core/meta"
	"DriveFM/core/player"
	"DriveFM/db"
	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/repository"
	"DriveFM/storage"

	"github.com/gorilla/mux"
)

// Start initializes every collaborator and runs the HTTP server until a
// termination signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutput,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	})

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("数据库连接失败", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("数据库初始化失败", logger.ErrorField(err))
	}

	// GORM connection for the album (smart playlist) module
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("GORM连接失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Album{}); err != nil {
		logger.Fatal("歌单表迁移失败", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Redis连接失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// MinIO object storage for audio and cover blobs
	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("MinIO初始化失败", logger.ErrorField(err))
	}

	// Core collaborators
	bus := events.NewBus()
	registry := handle.NewRegistry()
	songRepo := repository.NewMySQLSongRepository(bus)
	albumRepo := repository.NewGormAlbumRepository(db.GormDB, bus)
	settingsRepo := repository.NewMySQLSettingsRepository()
	extractor := meta.NewTagExtractor()

	covers := cache.NewCoverCache(registry)
	playback := cache.NewPlaybackCache(db.RedisClient)

	selector := player.NewSelector(songRepo, albumRepo, registry)
	selector.OnChange(func(snap player.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := playback.Save(ctx, snap); err != nil {
			logger.Warn("播放状态写入Redis失败", logger.ErrorField(err))
		}
	})

	// Cover cache follows store changes for the whole process lifetime.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go covers.Watch(watchCtx, bus, songRepo)

	apiHandler := NewAPIHandler(cfg, songRepo, albumRepo, settingsRepo,
		store, extractor, bus, registry, covers, selector, playback)

	router := NewRouter(apiHandler)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Minute, // sync requests carry large batches
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("服务启动", logger.String("addr", cfg.ServerAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("服务强制关闭", logger.ErrorField(err))
	}
	logger.Info("服务已停止")
}

// NewRouter builds the route table. Split from Start so handler tests can
// exercise real routing.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Library
	router.HandleFunc("/api/songs", h.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", h.DeleteSongHandler).Methods(http.MethodDelete)

	// Sync
	router.HandleFunc("/api/sync", h.SyncHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/status", h.StatusHandler).Methods(http.MethodGet)

	// Smart playlists
	router.HandleFunc("/api/albums", h.GetAlbumsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/albums", h.CreateAlbumHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/albums/{id}", h.UpdateAlbumHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/albums/{id}", h.DeleteAlbumHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/albums/{id}/songs", h.GetAlbumSongsHandler).Methods(http.MethodGet)

	// Playback selection
	router.HandleFunc("/api/player", h.GetPlayerHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/player/select/{id}", h.SelectSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", h.NextSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", h.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/resume", h.ResumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/ended", h.TrackEndedHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/progress", h.ProgressHandler).Methods(http.MethodPost)

	// Revocable media handles + live-query events
	router.HandleFunc("/media/{token}", h.MediaHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events", h.EventsHandler)

	return router
}
