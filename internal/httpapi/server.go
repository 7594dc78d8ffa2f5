package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/chat"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/config"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/observability"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/session"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/speech"
)

// maxTranscribeBytes bounds an uploaded audio file (25 MB, the provider limit).
const maxTranscribeBytes = 25 << 20

type Server struct {
	cfg         config.Config
	sessions    *session.Manager
	synthesizer speech.Synthesizer
	transcriber speech.Transcriber
	metrics     *observability.Metrics
}

func New(cfg config.Config, sessions *session.Manager, synthesizer speech.Synthesizer, transcriber speech.Transcriber, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		synthesizer: synthesizer,
		transcriber: transcriber,
		metrics:     metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/chat", s.handleChat)

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)

	r.Get("/v1/speech/voices", s.handleListVoices)
	r.Post("/v1/speech/synthesize", s.handleSynthesize)
	r.Post("/v1/speech/transcribe", s.handleTranscribe)

	return r
}

// cors mirrors the permissive policy the original training frontend relies
// on; APP_ALLOW_ANY_ORIGIN=false reduces it to same-host requests only.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" && (s.cfg.AllowAnyOrigin || sameHost(origin, r.Host)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sameHost(origin, host string) bool {
	origin = strings.TrimPrefix(origin, "http://")
	origin = strings.TrimPrefix(origin, "https://")
	return strings.EqualFold(origin, host)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	implicit := strings.TrimSpace(req.SessionID) == ""
	start := time.Now()
	answer, sess, err := s.sessions.Ask(r.Context(), strings.TrimSpace(req.SessionID), req.Question)
	// A blank session id creates a session even when the turn itself fails.
	if implicit && sess != nil {
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	}
	if err != nil {
		s.observeTurnError(err)
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			respondError(w, http.StatusBadRequest, "validation_error", "question must not be empty")
		case errors.Is(err, session.ErrNotFound):
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		case errors.Is(err, chat.ErrRetrievalFailed):
			respondError(w, http.StatusBadGateway, "index_error", err.Error())
		case errors.Is(err, chat.ErrGenerationFailed):
			respondError(w, http.StatusBadGateway, "generation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	s.metrics.ObserveTurn("ok", time.Since(start))
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	respondJSON(w, http.StatusOK, chatResponse{
		Question:  req.Question,
		Answer:    answer,
		SessionID: sess.ID,
	})
}

// observeTurnError counts the failed turn by outcome. Latency is recorded for
// completed turns only, so failures don't skew the histogram.
func (s *Server) observeTurnError(err error) {
	switch {
	case errors.Is(err, chat.ErrRetrievalFailed):
		s.metrics.Turns.WithLabelValues("retrieval_error").Inc()
		s.metrics.ProviderErrors.WithLabelValues("vectorstore", "search").Inc()
	case errors.Is(err, chat.ErrGenerationFailed):
		s.metrics.Turns.WithLabelValues("generation_error").Inc()
		s.metrics.ProviderErrors.WithLabelValues("llm", "completion").Inc()
	case errors.Is(err, chat.ErrEmptyQuestion), errors.Is(err, session.ErrNotFound):
		s.metrics.Turns.WithLabelValues("rejected").Inc()
	default:
		s.metrics.Turns.WithLabelValues("error").Inc()
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.End(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"voices":  speech.Voices(),
		"default": speech.DefaultVoice,
	})
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if s.synthesizer == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "speech synthesis not configured")
		return
	}

	var req synthesizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	audio, contentType, err := s.synthesizer.Synthesize(r.Context(), req.Text, req.Voice, req.Format)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrEmptyText), errors.Is(err, speech.ErrTextTooLong), errors.Is(err, speech.ErrUnsupportedFormat):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			s.metrics.ProviderErrors.WithLabelValues("speech", "synthesize").Inc()
			respondError(w, http.StatusBadGateway, "synthesis_error", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "speech transcription not configured")
		return
	}

	if err := r.ParseMultipartForm(maxTranscribeBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing file field")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxTranscribeBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(audio) > maxTranscribeBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "audio file exceeds 25 MB")
		return
	}

	text, err := s.transcriber.Transcribe(r.Context(), audio, header.Filename, r.FormValue("language"))
	if err != nil {
		if errors.Is(err, speech.ErrEmptyAudio) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		s.metrics.ProviderErrors.WithLabelValues("speech", "transcribe").Inc()
		respondError(w, http.StatusBadGateway, "transcription_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
