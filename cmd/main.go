package main

import (
  "context"
  "fmt"
  "os"
  "github.com/mangamuse/mangamuse-backend/internal/clients/redis"
  "github.com/mangamuse/mangamuse-backend/internal/config"
  "github.com/mangamuse/mangamuse-backend/internal/db"
  "github.com/mangamuse/mangamuse-backend/internal/handlers"
  "github.com/mangamuse/mangamuse-backend/internal/jobs"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/repos"
  "github.com/mangamuse/mangamuse-backend/internal/server"
  "github.com/mangamuse/mangamuse-backend/internal/services"
  "github.com/mangamuse/mangamuse-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Config
  log.Info("Loading recommender config from main...")
  cfg, err := config.Load(log)
  if err != nil {
    log.Error("Could not load recommender config", "error", err)
    os.Exit(1)
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  mangaRepo := repos.NewMangaRepo(thePG, log)
  historyRepo := repos.NewReadingHistoryRepo(thePG, log)
  favoriteRepo := repos.NewFavoriteRepo(thePG, log)
  preferenceRepo := repos.NewPreferenceRepo(thePG, log)
  recommendationRepo := repos.NewRecommendationRepo(thePG, log)

  // Redis (optional)
  recCache, err := redis.NewRecommendationCache(log)
  if err != nil {
    log.Warn("Could not init RecommendationCache, running without it", "error", err)
    recCache = nil
  }

  // Services
  log.Info("Setting up Services from main...")
  inferenceClient, err := services.NewInferenceClient(log, cfg)
  if err != nil {
    log.Error("Could not init InferenceClient", "error", err)
    os.Exit(1)
  }
  profileService := services.NewProfileService(thePG, log, historyRepo, favoriteRepo, preferenceRepo)
  candidateService := services.NewCandidateService(thePG, log, cfg, mangaRepo, historyRepo)
  fallbackProvider := services.NewFallbackProvider(log, candidateService)
  recommendationService := services.NewRecommendationService(
    thePG,
    log,
    cfg,
    recommendationRepo,
    profileService,
    candidateService,
    inferenceClient,
    fallbackProvider,
    recCache,
  )

  // Scheduler
  log.Info("Setting up refresh scheduler from main...")
  scheduler := jobs.NewRefreshScheduler(log, cfg, recommendationService)
  scheduler.Start(context.Background())

  // Handlers
  log.Info("Setting up handlers from main...")
  recommendationHandler := handlers.NewRecommendationHandler(log, recommendationService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    RecommendationHandler: recommendationHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
