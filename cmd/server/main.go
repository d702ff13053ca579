package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mlange/insight/pkg/chat"
	"github.com/mlange/insight/pkg/clients"
	"github.com/mlange/insight/pkg/config"
	"github.com/mlange/insight/pkg/database"
	"github.com/mlange/insight/pkg/embeddings"
	"github.com/mlange/insight/pkg/research/tools"
	"github.com/mlange/insight/pkg/server"
	"github.com/mlange/insight/pkg/splitter"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		log.Fatalf("Failed to enable pgvector extension: %v", err)
	}
	if err := db.CreateEmbeddingsTable(ctx, cfg.CollectionName, embeddings.Dimension); err != nil {
		log.Fatalf("Failed to create embeddings table: %v", err)
	}

	// Model clients: one for structured loop calls, one for synthesis.
	reasoningLLM, err := clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.ReasoningModel)
	if err != nil {
		log.Fatalf("Failed to create reasoning client: %v", err)
	}
	synthesisLLM, err := clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.SynthesisModel)
	if err != nil {
		log.Fatalf("Failed to create synthesis client: %v", err)
	}
	reasoner := clients.NewReasoner(reasoningLLM, slog.Default())
	synthesizer := clients.NewReasoner(synthesisLLM, slog.Default())

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	searcher := tools.NewWebSearch(cfg.SearchEndpoint, cfg.SearchApiKey)
	textSplitter := splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	chatSvc, err := chat.NewService(ctx, db, cfg)
	if err != nil {
		log.Fatalf("Failed to init chat service: %v", err)
	}
	evidenceTools := chat.NewEvidenceToolset(db, embedder, cfg)

	svc := server.NewService(db, cfg, searcher, reasoner, synthesizer, embedder, textSplitter)
	handler := server.NewHandler(svc, chatSvc, evidenceTools)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	port := cfg.Port
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8000"
	}

	fmt.Printf("Server starting on port %s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
