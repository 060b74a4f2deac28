package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formbridge/internal/cache"
	"formbridge/internal/config"
	"formbridge/internal/repository"
	"formbridge/internal/service"
	"formbridge/internal/transport/rest"
	"formbridge/internal/transport/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	srvCfg := config.DefaultServerConfig()
	authCfg := config.DefaultAuthConfig()
	nlpCfg := config.DefaultNLPConfig()

	log.Printf("NLP Config:")
	log.Printf("  Base URL:     %s", nlpCfg.BaseURL)
	log.Printf("  Callback URL: %s", nlpCfg.CallbackURL)
	if nlpCfg.IsEnabled() {
		log.Println("  Conversational filling: enabled")
	} else {
		log.Println("  Conversational filling: DISABLED (no NLP endpoint)")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(srvCfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(srvCfg.MongoDBName)

	// Redis connection
	redisAddr := srvCfg.RedisAddr
	// Remove redis:// prefix if present
	if len(redisAddr) > 8 && redisAddr[:8] == "redis://" {
		redisAddr = redisAddr[8:]
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	userRepo := repository.NewUserRepo(db)
	formRepo := repository.NewFormRepo(db)
	responseRepo := repository.NewResponseRepo(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create user indexes:", err)
	}

	// Initialize caches
	formCache := cache.NewFormCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService(userRepo, authCfg)
	formSvc := service.NewFormService(formRepo, formCache)
	responseSvc := service.NewResponseService(formRepo, responseRepo)
	exportSvc := service.NewExportService(formRepo, responseRepo, userRepo)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	responseSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:     authSvc,
		FormService:     formSvc,
		ResponseService: responseSvc,
		ExportService:   exportSvc,
		WSHub:           wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + srvCfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", srvCfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/register")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST/GET /v1/forms")
		log.Println("  GET/PUT/DELETE /v1/forms/{formId}")
		log.Println("  POST /v1/forms/{formId}/publish")
		log.Println("  POST /v1/responses")
		log.Println("  POST /v1/responses/callback")
		log.Println("  GET  /v1/forms/{formId}/responses")
		log.Println("  GET  /v1/forms/{formId}/responses/export")
		log.Println("  WS   /v1/ws/forms/{formId}/live")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
