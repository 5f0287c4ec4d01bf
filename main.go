package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ChristophStock/tvteam-ted/config"
	"github.com/ChristophStock/tvteam-ted/handlers"
	"github.com/ChristophStock/tvteam-ted/middleware"
	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/routes"
	"github.com/ChristophStock/tvteam-ted/services"
	"github.com/ChristophStock/tvteam-ted/store"
)

func main() {
	// Local dev convenience; production relies on real env.
	_ = godotenv.Load()

	cfg := config.Load()

	assets, err := services.LoadManifest(cfg.VideoManifestPath)
	if err != nil {
		log.Fatal("Failed to load video manifest:", err)
	}

	var questionStore store.QuestionStore
	var modeStore store.ModeStore
	if cfg.MemoryMode {
		log.Printf("MEMORY_MODE=1: running without Postgres/Redis")
		questionStore = store.NewMemoryStore()
		modeStore = store.NewMemoryModeStore()
	} else {
		db, err := config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		if err := db.AutoMigrate(&models.Question{}, &models.Option{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		questionStore = store.NewGormStore(db)
		modeStore = store.NewRedisModeStore(config.InitRedis(cfg))
	}

	session := services.NewSessionService(questionStore, modeStore, assets)

	ctx := context.Background()
	seedExampleQuestion(ctx, session, questionStore)

	hub := services.NewHub(session)
	session.SetPublisher(hub)
	if mode, err := session.DisplayMode(ctx); err == nil {
		hub.CacheDisplayMode(mode)
	} else {
		log.Printf("Failed to load persisted display mode: %v", err)
	}
	go hub.Run()

	authHandler := handlers.NewAuthHandler(cfg.JWTSecret, cfg.AdminPassword, cfg.AdminPasswordHash)
	questionHandler := handlers.NewQuestionHandler(session)
	stateHandler := handlers.NewStateHandler(session, hub, cfg.Title, assets)

	router := gin.Default()
	router.Use(middleware.CORS())
	routes.SetupRoutes(router, authHandler, questionHandler, stateHandler, hub, cfg.JWTSecret)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// seedExampleQuestion inserts a sample question into an empty store so a
// fresh deployment has something to activate right away.
func seedExampleQuestion(ctx context.Context, session *services.SessionService, questions store.QuestionStore) {
	count, err := questions.Count(ctx)
	if err != nil {
		log.Printf("Failed to count questions: %v", err)
		return
	}
	if count > 0 {
		return
	}
	question, err := session.CreateQuestion(ctx, "Testfrage: Was ist 2+2?", []services.OptionInput{
		{Text: "3"}, {Text: "4"}, {Text: "5"},
	})
	if err != nil {
		log.Printf("Failed to seed example question: %v", err)
		return
	}
	log.Printf("Seeded example question %d", question.ID)
}
