package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/config"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/httpapi"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/ingest"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/observability"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/session"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/speech"
)

var (
	serveNoIngest bool
	serveNoSpeech bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the training chat HTTP service",
	Long: `Start the HTTP service: index the training documents, then serve
/chat, /health, /metrics, the session endpoints and the speech endpoints.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings, chat and audio
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  dubula serve
  dubula serve --skip-ingest
  DOCS_DIR=/data/training dubula serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoIngest, "skip-ingest", false, "Skip indexing the docs directory at startup")
	serveCmd.Flags().BoolVar(&serveNoSpeech, "no-speech", false, "Disable the speech endpoints")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer pipe.Close()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	if !serveNoIngest {
		n, err := pipe.index(ctx)
		if err != nil {
			return fmt.Errorf("failed to index documents: %w", err)
		}
		metrics.IndexedPassages.Add(float64(n))
		log.Printf("indexed %d passages from %s", n, cfg.DocsDir)
	}

	if cfg.WatchDocs {
		watcher, err := ingest.NewWatcher(pipe.loader, pipe.embedder, pipe.store, 0)
		if err != nil {
			return fmt.Errorf("failed to create docs watcher: %w", err)
		}
		if err := watcher.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.DocsDir, err)
		}
		log.Printf("watching %s for document changes", cfg.DocsDir)
	}

	sessions := session.NewManager(pipe.newComposer, cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		log.Printf("session %s expired after %d turns", s.ID, s.TurnCount)
	})
	sessions.StartJanitor(ctx, time.Minute)

	var synthesizer speech.Synthesizer
	var transcriber speech.Transcriber
	if !serveNoSpeech {
		provider, err := speech.NewOpenAISpeech(speech.Config{
			APIKey:   cfg.OpenAIAPIKey,
			TTSModel: cfg.TTSModel,
			STTModel: cfg.STTModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create speech provider: %w", err)
		}
		synthesizer = provider
		transcriber = provider
	}

	server := httpapi.New(cfg, sessions, synthesizer, transcriber, metrics)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
