package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/db/memstore"
	"github.com/docchat/docchat/internal/documents"
	"github.com/docchat/docchat/internal/embeddings"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/logger"
	"github.com/docchat/docchat/internal/ollama"
	"github.com/docchat/docchat/internal/openai"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/server"
	"github.com/docchat/docchat/internal/tools"
)

// store is everything the services need from persistence
type store interface {
	documents.Store
	rag.Store
	chat.ConversationStore
	server.Store
}

// services holds the wired application graph
type services struct {
	store        store
	processor    *documents.Processor
	retriever    *rag.Retriever
	executor     *tools.Executor
	orchestrator *chat.Orchestrator
	close        func()
}

// openStore connects to the configured driver, migrating first when asked
func openStore(ctx context.Context, migrate bool) (store, func(), error) {
	if cfg.Database.Driver == "memory" {
		appLogger.Warn("using in-memory store, nothing will be persisted")
		return memstore.New(), func() {}, nil
	}

	if migrate {
		applied, err := db.Migrate(ctx, cfg.Database.ConnectionString, cfg.Embeddings.Dimensions)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info("migrations complete", "applied", applied)
	}

	conn, err := db.New(ctx, cfg.Database.ConnectionString, cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

// buildServices wires the full graph. Chat wiring is skipped when withChat is false.
func buildServices(ctx context.Context, migrate, withChat bool) (*services, error) {
	st, closeStore, err := openStore(ctx, migrate)
	if err != nil {
		return nil, err
	}

	httpClient := logger.NewClient(appLogger, 0)

	var oc *openai.Client
	if cfg.Chat.Provider == "openai" || cfg.Embeddings.Provider == "openai" {
		if cfg.OpenAIKey() == "" {
			appLogger.Warn("OpenAI API key is not set, model calls will fail", "env", cfg.OpenAI.APIKeyEnv)
		}
		oc = openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAIKey(),
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
			Timeout:    cfg.OpenAITimeout(),
		})
	}
	ol := ollama.NewClient(cfg.Ollama.BaseURL, httpClient)

	var provider embeddings.Provider
	switch cfg.Embeddings.Provider {
	case "ollama":
		provider = embeddings.NewTextEmbedder(ol.BaseURL(), cfg.EmbeddingModel(), ol.HTTPClient())
	default:
		provider = embeddings.NewOpenAIEmbedder(oc, cfg.EmbeddingModel(), cfg.Embeddings.Dimensions)
	}
	embedder := embeddings.NewService(provider, cfg.Embeddings.Dimensions, cfg.Embeddings.DocumentPrefixChars)
	appLogger.Debug("embeddings ready",
		"provider", cfg.Embeddings.Provider,
		"model", cfg.EmbeddingModel(),
		"dimensions", embedder.Dimensions())

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Processing.ChunkSize),
		chunker.WithOverlap(cfg.Processing.ChunkOverlap),
	)

	svc := &services{
		store: st,
		processor: documents.NewProcessor(st, embedder, splitter, documents.Options{
			Concurrency: cfg.Processing.EmbedConcurrency,
			Deduplicate: cfg.Processing.Deduplicate,
		}, appLogger),
		retriever: rag.NewRetriever(st, embedder, cfg.Processing.TopK, appLogger),
		executor:  tools.NewExecutor(searchClient(httpClient)),
		close:     closeStore,
	}

	if !withChat {
		return svc, nil
	}

	model, err := chatModel(ctx, oc, ol)
	if err != nil {
		closeStore()
		return nil, err
	}
	appLogger.Info("chat model ready", "provider", cfg.Chat.Provider, "model", model.Name())

	svc.orchestrator = chat.NewOrchestrator(chat.Options{
		Store:       st,
		Model:       model,
		Documents:   svc.retriever,
		Detector:    rag.NewKeywordDetector(cfg.Chat.ContextKeywords),
		Executor:    svc.executor,
		Temperature: cfg.Chat.Temperature,
		Logger:      appLogger,
	})
	return svc, nil
}

func searchClient(httpClient *http.Client) *tools.SearchClient {
	if cfg.SearchKey() == "" {
		appLogger.Warn("search API key is not set, web search will fail", "env", cfg.Search.APIKeyEnv)
	}
	return tools.NewSearchClient(cfg.Search.BaseURL, cfg.SearchKey(), cfg.Search.RatePerSecond, httpClient)
}

func chatModel(ctx context.Context, oc *openai.Client, ol *ollama.Client) (llm.ChatModel, error) {
	if cfg.Chat.Provider == "openai" {
		return openai.NewChatModel(oc, cfg.OpenAI.ChatModel), nil
	}

	name, err := ollama.NewModelSelector(ol).Resolve(ctx, cfg.Ollama.DefaultModel)
	if err != nil {
		if cfg.Ollama.DefaultModel == "" {
			return nil, fmt.Errorf("failed to select ollama model: %w", err)
		}
		appLogger.Warn("could not list ollama models, using configured model",
			"model", cfg.Ollama.DefaultModel, "err", err)
		name = cfg.Ollama.DefaultModel
	}
	return ollama.NewChatModel(ol, name), nil
}
