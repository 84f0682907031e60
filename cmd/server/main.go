package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mjunaidjbr/salawat-tally-bot/docs"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/audit"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/config"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/database"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/handlers"
	mW "github.com/mjunaidjbr/salawat-tally-bot/internal/middleware"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/services"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/telegram"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

// @title Salawat Tally Bot Admin API
// @version 1.0
// @description Provisioning API for topic counters of the group counting bot
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	config.BindEnv()
	config.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using environment: %v", err)
	}

	botConfig, err := config.LoadBotConfig()
	if err != nil {
		log.Fatalf("Failed to load bot config: %v", err)
	}
	voiceConfig := config.LoadVoiceConfig()

	docs.SwaggerInfo.Host = "localhost:" + viper.GetString("http.port")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.GetConfig())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledger := services.NewLedgerStore(db)
	interpreter := services.NewInterpreter(ledger, audit.NewAuditLogger())
	policy := services.NewPrivilegePolicy(botConfig.AdminUserIDs)
	directory := services.NewUserDirectory(redisClient, botConfig.NameTTL)
	authService := services.NewAdminAuthService(redisClient)

	var transcriber telegram.Transcriber
	if voiceConfig.Enabled {
		voice := services.NewVoiceTranscriber(ctx, voiceConfig)
		defer voice.Close()
		transcriber = voice
	}

	handler := telegram.NewHandler(botConfig, voiceConfig, interpreter, policy, directory, transcriber)
	runner, err := telegram.NewRunner(botConfig, handler)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	counterHandler := handlers.NewCounterHandler(ledger, directory)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Topic-Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authService.Login)

		r.Group(func(r chi.Router) {
			r.Use(mW.NewAuthMiddleware(authService))

			r.Post("/auth/logout", authService.Logout)
			r.Route("/counters", counterHandler.Routes)
		})
	})

	server := &http.Server{
		Addr:         ":" + viper.GetString("http.port"),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runner.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
		return
	}

	log.Println("Server stopped")
}
