package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings for the training chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	DocsDir       string
	WatchDocs     bool
	ChunkSize     int
	ChunkOverlap  int
	LoaderWorkers int

	VectorStore        string // "milvus" or "memory"
	MilvusAddress      string
	MilvusCollection   string
	EmbeddingModel     string
	EmbeddingDimension int

	ChatModel     string
	Creativity    float64 // temperature, 0-2
	ChatMaxTokens int     // conversation memory token budget
	TopK          int     // passages retrieved per turn
	SelfQuery     bool    // LLM-derived metadata filters

	RetrievalTimeout         time.Duration
	GenerationTimeout        time.Duration
	SessionInactivityTimeout time.Duration

	OpenAIAPIKey string
	TTSModel     string
	STTModel     string
}

// tunables is the optional YAML overlay (DUBULA_CONFIG). Environment
// variables take precedence over the file.
type tunables struct {
	ChunkSize     *int     `yaml:"chunk_size"`
	ChunkOverlap  *int     `yaml:"chunk_overlap"`
	TopK          *int     `yaml:"top_k"`
	ChatMaxTokens *int     `yaml:"chat_max_tokens"`
	Creativity    *float64 `yaml:"creativity"`
	SelfQuery     *bool    `yaml:"self_query"`
}

// Load reads the optional YAML tunables file, then environment variables, and
// applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "dubula"),
		AllowAnyOrigin:           true,
		DocsDir:                  envOrDefault("DOCS_DIR", "./docs"),
		WatchDocs:                false,
		ChunkSize:                1000,
		ChunkOverlap:             200,
		LoaderWorkers:            4,
		VectorStore:              envOrDefault("VECTOR_STORE", "milvus"),
		MilvusAddress:            envOrDefault("MILVUS_ADDRESS", milvusAddrFromHostPort()),
		MilvusCollection:         envOrDefault("MILVUS_COLLECTION", "training_documents"),
		EmbeddingModel:           envOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension:       1536,
		ChatModel:                envOrDefault("CHAT_MODEL", "gpt-3.5-turbo"),
		Creativity:               1.2,
		ChatMaxTokens:            3097,
		TopK:                     4,
		SelfQuery:                true,
		RetrievalTimeout:         5 * time.Second,
		GenerationTimeout:        60 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		ShutdownTimeout:          15 * time.Second,
		OpenAIAPIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		TTSModel:                 envOrDefault("TTS_MODEL", "tts-1"),
		STTModel:                 envOrDefault("STT_MODEL", "whisper-1"),
	}

	if err := applyTunablesFile(&cfg); err != nil {
		return Config{}, err
	}

	var err error
	cfg.WatchDocs, err = boolFromEnv("WATCH_DOCS", cfg.WatchDocs)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SelfQuery, err = boolFromEnv("SELF_QUERY", cfg.SelfQuery)
	if err != nil {
		return Config{}, err
	}
	cfg.ChunkSize, err = intFromEnv("CHUNK_SIZE", cfg.ChunkSize)
	if err != nil {
		return Config{}, err
	}
	cfg.ChunkOverlap, err = intFromEnv("CHUNK_OVERLAP", cfg.ChunkOverlap)
	if err != nil {
		return Config{}, err
	}
	cfg.LoaderWorkers, err = intFromEnv("LOADER_WORKERS", cfg.LoaderWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDimension, err = intFromEnv("EMBEDDING_DIMENSION", cfg.EmbeddingDimension)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatMaxTokens, err = intFromEnv("CHAT_MAX_TOKENS", cfg.ChatMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.TopK, err = intFromEnv("N_RETRIEVALS", cfg.TopK)
	if err != nil {
		return Config{}, err
	}
	cfg.Creativity, err = floatFromEnv("CREATIVITY", cfg.Creativity)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTimeout, err = durationFromEnv("RETRIEVAL_TIMEOUT", cfg.RetrievalTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTimeout, err = durationFromEnv("GENERATION_TIMEOUT", cfg.GenerationTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.Creativity < 0 || cfg.Creativity > 2 {
		return Config{}, fmt.Errorf("CREATIVITY must be in [0,2]")
	}
	if cfg.ChatMaxTokens <= 0 {
		return Config{}, fmt.Errorf("CHAT_MAX_TOKENS must be positive")
	}
	if cfg.TopK <= 0 {
		return Config{}, fmt.Errorf("N_RETRIEVALS must be positive")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Config{}, fmt.Errorf("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	if cfg.EmbeddingDimension <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}
	switch cfg.VectorStore {
	case "milvus", "memory":
	default:
		return Config{}, fmt.Errorf("VECTOR_STORE must be milvus or memory")
	}

	return cfg, nil
}

// applyTunablesFile overlays values from the YAML file named by DUBULA_CONFIG
// (default ./dubula.yaml). A missing file is not an error.
func applyTunablesFile(cfg *Config) error {
	path := envOrDefault("DUBULA_CONFIG", "dubula.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var t tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if t.ChunkSize != nil {
		cfg.ChunkSize = *t.ChunkSize
	}
	if t.ChunkOverlap != nil {
		cfg.ChunkOverlap = *t.ChunkOverlap
	}
	if t.TopK != nil {
		cfg.TopK = *t.TopK
	}
	if t.ChatMaxTokens != nil {
		cfg.ChatMaxTokens = *t.ChatMaxTokens
	}
	if t.Creativity != nil {
		cfg.Creativity = *t.Creativity
	}
	if t.SelfQuery != nil {
		cfg.SelfQuery = *t.SelfQuery
	}
	return nil
}

// milvusAddrFromHostPort honors the legacy MILVUS_HOST/MILVUS_PORT pair.
func milvusAddrFromHostPort() string {
	host := strings.TrimSpace(os.Getenv("MILVUS_HOST"))
	if host == "" {
		return "localhost:19530"
	}
	port := strings.TrimSpace(os.Getenv("MILVUS_PORT"))
	if port == "" {
		port = "19530"
	}
	return host + ":" + port
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
