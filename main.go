package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"movieverse/api"
	"movieverse/config"
	"movieverse/handlers"
	"movieverse/services/favorites"
	"movieverse/services/localcache"
	"movieverse/services/metadata"
	"movieverse/services/syncer"
	"movieverse/services/users"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	configFlag := flag.String("config", "", "path to settings.json")
	flag.Parse()

	fmt.Println("🚀 movieverse backend starting...")

	// Optional .env for local development. API keys set here override config.
	_ = godotenv.Load()

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("MOVIEVERSE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Environment variables win over stored keys so deployments can rotate
	// them without editing settings.json.
	if v := os.Getenv("OMDB_API_KEY"); v != "" {
		settings.Metadata.OMDBAPIKey = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		settings.Metadata.TMDBAPIKey = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		settings.Metadata.YouTubeAPIKey = v
	}

	db, err := favorites.OpenDB(settings.Database.FavoritesPath)
	if err != nil {
		log.Fatalf("failed to open favorites database: %v", err)
	}
	defer db.Close()
	store := favorites.NewStore(db)

	cache, err := localcache.New(settings.Database.CachePath)
	if err != nil {
		log.Fatalf("failed to open local cache: %v", err)
	}
	defer cache.Close()

	userService, err := users.NewService(settings.Database.UsersDir, []byte(settings.Auth.JWTSecret))
	if err != nil {
		log.Fatalf("failed to initialise users: %v", err)
	}

	metadataService := metadata.NewService(metadata.Config{
		OMDBAPIKey:    settings.Metadata.OMDBAPIKey,
		TMDBAPIKey:    settings.Metadata.TMDBAPIKey,
		YouTubeAPIKey: settings.Metadata.YouTubeAPIKey,
		CacheTTL:      time.Duration(settings.Metadata.CacheTTLHours) * time.Hour,
	})

	reconciler := syncer.New(store, cache, time.Duration(settings.Sync.ReplayIntervalMinutes)*time.Minute)
	if err := reconciler.Start(context.Background()); err != nil {
		log.Fatalf("failed to start sync replay loop: %v", err)
	}

	favoritesHandler := handlers.NewFavoritesHandler(reconciler, store, metadataService)
	syncHandler := handlers.NewSyncHandler(reconciler)
	metadataHandler := handlers.NewMetadataHandler(metadataService)
	usersHandler := handlers.NewUsersHandler(userService)
	settingsHandler := handlers.NewSettingsHandler(cfgManager, metadataService)
	// Replaying queued favorite mutations on login picks up changes made
	// while the backend was unreachable.
	usersHandler.LoginHook = func(userID string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			replayed, failed, err := reconciler.Replay(ctx, userID)
			if err != nil {
				log.Printf("[main] login replay for %s failed: %v", userID, err)
				return
			}
			if replayed > 0 || failed > 0 {
				log.Printf("[main] login replay for %s: %d replayed, %d failed", userID, replayed, failed)
			}
		}()
	}

	r := mux.NewRouter()
	api.Register(r, favoritesHandler, usersHandler, metadataHandler, syncHandler, settingsHandler, userService)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := reconciler.Stop(shutdownCtx); err != nil {
		log.Printf("Sync replay loop shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
