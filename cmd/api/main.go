package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/chatagent"
	chatmemory "github.com/w-h-a/sales-insight/chatagent/memory"
	"github.com/w-h-a/sales-insight/embedder"
	googleembedder "github.com/w-h-a/sales-insight/embedder/google"
	openaiembedder "github.com/w-h-a/sales-insight/embedder/openai"
	"github.com/w-h-a/sales-insight/extractor/plaintext"
	"github.com/w-h-a/sales-insight/generator"
	anthropicgenerator "github.com/w-h-a/sales-insight/generator/anthropic"
	googlegenerator "github.com/w-h-a/sales-insight/generator/google"
	openaigenerator "github.com/w-h-a/sales-insight/generator/openai"
	"github.com/w-h-a/sales-insight/internal/handler"
	"github.com/w-h-a/sales-insight/saleshelper"
	"github.com/w-h-a/sales-insight/server"
	httpserver "github.com/w-h-a/sales-insight/server/http"
	"github.com/w-h-a/sales-insight/vectorstore"
	memorybackend "github.com/w-h-a/sales-insight/vectorstore/memory"
	"github.com/w-h-a/sales-insight/vectorstore/postgres"
	"github.com/w-h-a/sales-insight/vectorstore/qdrant"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Address to serve the API on" default:":8000"`

		// Embedder config
		Embedder      string `help:"Embedder provider (openai or google)" default:"openai" env:"EMBEDDER"`
		EmbedderKey   string `help:"API key for the embedder" default:"" env:"EMBEDDER_KEY"`
		EmbedderModel string `help:"Model identifier for the embedder" default:"text-embedding-3-small" env:"EMBEDDER_MODEL"`

		// Generator config
		Generator      string `help:"Generator provider (openai, anthropic, or google)" default:"openai" env:"GENERATOR"`
		GeneratorKey   string `help:"API key for the generator" default:"" env:"GENERATOR_KEY"`
		GeneratorModel string `help:"Model identifier for the generator" default:"gpt-4o-mini" env:"GENERATOR_MODEL"`

		// Vector backend config
		Backend    string `help:"Vector backend (qdrant, postgres, or memory)" default:"memory" env:"VECTOR_BACKEND"`
		Location   string `help:"Address of the vector backend" default:"" env:"VECTOR_LOCATION"`
		Collection string `help:"Collection name for the vector backend" default:"sales_transcripts" env:"VECTOR_COLLECTION"`
		BackendKey string `help:"API key for the vector backend" default:"" env:"VECTOR_KEY"`
		VectorSize int    `help:"Embedding dimension of the configured embedder model" default:"1536" env:"VECTOR_SIZE"`

		// Agent config
		TopK         int     `help:"Number of grounding matches per query" default:"5"`
		Window       int     `help:"Number of recent chat turns replayed into the prompt" default:"12"`
		MaxDistance  float64 `help:"Relevance cutoff for sales helper recommendation synthesis" default:"0.6"`
		SystemPrompt string  `help:"System prompt for the chat agent" default:""`
	}
)

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	_ = kong.Parse(&cfg)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	emb := newEmbedder()
	gen := newGenerator()

	capability := newCapability(emb)

	transcriptAnalyzer := analyzer.NewAnalyzer(gen)

	salesAgent := saleshelper.NewAgent(
		transcriptAnalyzer,
		capability,
		gen,
		saleshelper.WithTopK(cfg.TopK),
		saleshelper.WithMaxDistance(cfg.MaxDistance),
	)

	chatAgent := chatagent.NewAgent(
		chatmemory.NewSessions(),
		capability,
		gen,
		chatagent.WithTopK(cfg.TopK),
		chatagent.WithWindow(cfg.Window),
		chatagent.WithSystemPrompt(cfg.SystemPrompt),
	)

	h := handler.NewHandler(
		transcriptAnalyzer,
		plaintext.NewExtractor(),
		capability,
		salesAgent,
		chatAgent,
	)

	srv := httpserver.NewServer(
		server.WithAddress(cfg.Address),
		server.WithHandler(h.Routes()),
	)

	errCh := make(chan error, 1)

	go func() {
		slog.Info("serving sales insight api", "address", srv.Address())
		errCh <- srv.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

func newEmbedder() embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.EmbedderKey),
		embedder.WithModel(cfg.EmbedderModel),
	}

	switch cfg.Embedder {
	case "google":
		return googleembedder.NewEmbedder(opts...)
	default:
		return openaiembedder.NewEmbedder(opts...)
	}
}

func newGenerator() generator.Generator {
	opts := []generator.Option{
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithModel(cfg.GeneratorModel),
	}

	switch cfg.Generator {
	case "anthropic":
		return anthropicgenerator.NewGenerator(opts...)
	case "google":
		return googlegenerator.NewGenerator(opts...)
	default:
		return openaigenerator.NewGenerator(opts...)
	}
}

// newCapability decides once at startup whether search is available. A
// backend that fails to initialize disables search; analysis still works.
func newCapability(emb embedder.Embedder) vectorstore.Capability {
	opts := []vectorstore.Option{
		vectorstore.WithLocation(cfg.Location),
		vectorstore.WithCollection(cfg.Collection),
		vectorstore.WithApiKey(cfg.BackendKey),
		vectorstore.WithVectorSize(cfg.VectorSize),
	}

	var backend vectorstore.Backend
	var err error

	switch cfg.Backend {
	case "qdrant":
		backend, err = qdrant.NewBackend(opts...)
	case "postgres":
		backend, err = postgres.NewBackend(opts...)
	default:
		backend = memorybackend.NewBackend(opts...)
	}

	if err != nil {
		slog.Warn("vector backend unavailable, search disabled", "backend", cfg.Backend, "error", err)
		return vectorstore.Disabled()
	}

	return vectorstore.Enabled(vectorstore.NewStore(backend, emb))
}
