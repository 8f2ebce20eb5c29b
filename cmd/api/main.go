package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/pawankonwar/imagesight/internal/application"
	appanalyses "github.com/pawankonwar/imagesight/internal/application/analyses"
	"github.com/pawankonwar/imagesight/internal/config"
	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
	"github.com/pawankonwar/imagesight/internal/domain/faults"
	openaiClient "github.com/pawankonwar/imagesight/internal/infra/ai/openai"
	mysqlp "github.com/pawankonwar/imagesight/internal/infra/db/mysql"
	pgp "github.com/pawankonwar/imagesight/internal/infra/db/postgres"
	"github.com/pawankonwar/imagesight/internal/infra/httpserver"
	minioStore "github.com/pawankonwar/imagesight/internal/infra/storage"
	"github.com/pawankonwar/imagesight/internal/middleware"
)

func main() {
	// secrets may live in .env during development
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (driver chosen by config)
	var (
		db        *sql.DB
		repo      domain.Repository
		faultRepo faults.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		if err := pgp.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("postgres schema error: %v", err)
		}
		repo = pgp.NewAnalysisRepository(db)
		faultRepo = pgp.NewFaultRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("mysql schema error: %v", err)
		}
		repo = mysqlp.NewAnalysisRepository(db)
		faultRepo = mysqlp.NewFaultRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init vision client
	vision := openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	// init service
	svc := &appanalyses.Service{
		Repo:   repo,
		Blobs:  store,
		Vision: vision,
		Faults: faultRepo,
		Clock:  application.SystemClock{},
	}

	health := middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database":     &middleware.DatabaseHealthChecker{DB: db},
		"object_store": middleware.CheckerFunc(store.Check),
	})

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		CORSOrigin: cfg.Server.CORSOrigin,
		APIKey:     cfg.Server.APIKey,
		Health:     health,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		// uploads block on the vision model; give responses room
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
