package cmd

import (
	"context"
	"fmt"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/chat"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/config"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/ingest"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

// pipeline bundles the collaborators shared by serve, chat and ingest.
type pipeline struct {
	cfg      config.Config
	embedder rag.Embedder
	store    rag.VectorStore
	loader   *ingest.Loader
}

func newPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	embedder, err := rag.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	var store rag.VectorStore
	switch cfg.VectorStore {
	case "memory":
		store = rag.NewMemoryStore()
	default:
		milvusCfg := rag.DefaultMilvusConfig(cfg.MilvusAddress)
		milvusCfg.CollectionName = cfg.MilvusCollection
		milvusCfg.Dimension = cfg.EmbeddingDimension
		store, err = rag.NewMilvusStore(ctx, milvusCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
		}
	}

	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	loader := ingest.NewLoader(cfg.DocsDir, chunker, cfg.LoaderWorkers, nil)

	return &pipeline{cfg: cfg, embedder: embedder, store: store, loader: loader}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// index loads every document under the docs directory and indexes the chunks,
// replacing previously indexed versions of the same files.
func (p *pipeline) index(ctx context.Context) (int, error) {
	passages, err := p.loader.Load(ctx)
	if err != nil {
		return 0, err
	}
	if len(passages) == 0 {
		return 0, nil
	}

	opts := rag.DefaultIndexOptions()
	opts.ReplaceSources = true
	if err := rag.IndexPassages(ctx, passages, p.embedder, p.store, opts); err != nil {
		return 0, err
	}
	return len(passages), nil
}

// newComposer builds a composer with a fresh conversation memory.
func (p *pipeline) newComposer() (*chat.Composer, error) {
	llmCfg := chat.LLMConfig{
		Model:       p.cfg.ChatModel,
		Temperature: p.cfg.Creativity,
		MaxTokens:   0,
		APIKey:      p.cfg.OpenAIAPIKey,
	}
	llm, err := chat.NewOpenAILLM(llmCfg)
	if err != nil {
		return nil, err
	}

	var planner rag.QueryPlanner
	if p.cfg.SelfQuery {
		planner = rag.NewSelfQueryPlanner(llm)
	}

	retriever, err := rag.NewRetriever(p.embedder, p.store, planner, p.cfg.TopK)
	if err != nil {
		return nil, err
	}

	history := chat.NewHistory(p.cfg.ChatMaxTokens, chat.NewTokenCounter(p.cfg.ChatModel))

	composerCfg := chat.DefaultComposerConfig()
	composerCfg.RetrievalTimeout = p.cfg.RetrievalTimeout
	composerCfg.GenerationTimeout = p.cfg.GenerationTimeout

	return chat.NewComposer(retriever, llm, history, composerCfg)
}
