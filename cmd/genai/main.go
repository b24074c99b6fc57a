package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"syara/config"
	"syara/internal/agents"
	"syara/internal/clickhouse"
	"syara/internal/nlp"
	"syara/internal/rabbitmq"
	"syara/internal/vectorstore"
	"syara/internal/workers"
	"syara/pkg/logger"
)

func main() {
	// Initialize logger
	logger.Init()
	log.Println("🚀 Starting GenAI Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateGenAI(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("✓ Configuration loaded")
	log.Printf("  - RabbitMQ: %s (queue %s)", cfg.RabbitMQ.URL, cfg.RabbitMQ.ExportQueue)
	log.Printf("  - Vector store: %s (collection %s, dim %d)", cfg.Vector.Provider, cfg.Vector.Collection, cfg.Vector.EmbeddingSize)
	log.Printf("  - NLP provider: %s", cfg.NLP.Provider)

	// Create the generation/embedding engine
	engine, err := nlp.NewEngine(cfg.NLP)
	if err != nil {
		log.Fatalf("Failed to create NLP engine: %v", err)
	}

	// Connect to the vector store
	store, err := vectorstore.NewStore(cfg.Vector)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	if err := store.Connect(context.Background()); err != nil {
		log.Fatalf("Failed to connect to vector store: %v", err)
	}
	defer store.Disconnect()
	log.Println("✓ Connected to vector store")

	// Bootstrap the cars collection
	if err := store.CreateCollection(context.Background(), cfg.Vector.Collection); err != nil {
		if !errors.Is(err, vectorstore.ErrCollectionExists) {
			log.Fatalf("Failed to create collection %s: %v", cfg.Vector.Collection, err)
		}
		log.Printf("✓ Collection %s already exists", cfg.Vector.Collection)
	} else {
		log.Printf("✓ Created collection %s", cfg.Vector.Collection)
	}

	// Connect to RabbitMQ
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	log.Println("✓ Connected to RabbitMQ")

	// Connect to ClickHouse for the audit trail; the service runs without it
	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Printf("ClickHouse unavailable, audit trail disabled: %v", err)
		chClient = nil
	} else {
		defer chClient.Close()
		log.Println("✓ Connected to ClickHouse")
	}

	describeAgent := agents.NewDescribeAgent(engine, store)
	bestFitAgent := agents.NewBestFitAgent(engine, store, cfg.Vector.Collection)
	ingestWorker := workers.NewIngestWorker(consumer, describeAgent, chClient, cfg.RabbitMQ.ExportQueue, cfg.Vector.Collection)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ingestWorker.Start(); err != nil {
			log.Printf("Ingest worker error: %v", err)
		}
	}()

	server := &http.Server{
		Addr:    cfg.GenAIAddr,
		Handler: newRouter(bestFitAgent),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("✓ Best-fit endpoint listening on %s", cfg.GenAIAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("✓ GenAI service started")

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("🛑 Shutting down GenAI service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// Closing the connection ends the consume loop; an in-flight message is
	// left unacked and redelivered later, which the upsert makes safe.
	consumer.Close()
	wg.Wait()

	log.Println("✓ GenAI service stopped gracefully")
}

func newRouter(agent *agents.BestFitAgent) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "genai"})
	})

	mux.HandleFunc("/api/v1/bestfit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
			return
		}

		reply, err := agent.Run(r.Context(), req.Message)
		if err != nil {
			log.Printf("✗ Best-fit request failed: %v", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "recommendation failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
