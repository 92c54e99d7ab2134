package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	arkembedding "github.com/cloudwego/eino-ext/components/embedding/ark"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every startup parameter of the service.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Index     IndexConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
}

// Load reads configuration from environment variables. Anything the
// service cannot run without (model credentials, index DSN) is an
// error here, so the process refuses to start instead of failing on
// the first question.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}
	if !ai.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials or model ids: set ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY), ARK_CHAT_MODEL and ARK_EMBEDDING_MODEL")
	}

	index, err := loadIndexConfig()
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig()
	if err != nil {
		return nil, err
	}

	ingest, err := loadIngestConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Index: index, Retrieval: retrieval, Ingest: ingest}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig holds the Ark credentials plus the two model identifiers
// the service depends on: one for generation, one for embeddings.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	ChatModel      string
	EmbeddingModel string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled reports whether the required credentials and model ids are present.
func (c AIConfig) Enabled() bool {
	if c.ChatModel == "" || c.EmbeddingModel == "" {
		return false
	}
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

// NewChatModel builds the generation model client from this config.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.ChatModel,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// NewEmbedder builds the embedding model client from this config.
func (c AIConfig) NewEmbedder(ctx context.Context) (embedding.Embedder, error) {
	cfg := &arkembedding.EmbeddingConfig{
		BaseURL: c.BaseURL,
		Region:  c.Region,
		APIKey:  c.APIKey,
		Model:   c.EmbeddingModel,
	}

	return arkembedding.NewEmbedder(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ChatModel:      strings.TrimSpace(os.Getenv("ARK_CHAT_MODEL")),
		EmbeddingModel: strings.TrimSpace(os.Getenv("ARK_EMBEDDING_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

// IndexConfig locates the persisted passage index.
type IndexConfig struct {
	DatabaseURL string
}

func loadIndexConfig() (IndexConfig, error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		return IndexConfig{}, fmt.Errorf("DATABASE_URL is required: the service cannot answer without its passage index")
	}
	return IndexConfig{DatabaseURL: dsn}, nil
}

// RetrievalConfig tunes the retrieval-and-grounding pipeline.
type RetrievalConfig struct {
	// RelevanceThreshold is a cosine similarity; passages scoring
	// below it never reach the prompt.
	RelevanceThreshold float64
	// K is how many passages are fetched per question.
	K int
	// HistoryWindow is how many completed turns a prompt may carry.
	HistoryWindow   int
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
}

func loadRetrievalConfig() (RetrievalConfig, error) {
	threshold := 0.70
	if v, err := parseOptionalFloatEnv("RELEVANCE_THRESHOLD"); err != nil {
		return RetrievalConfig{}, err
	} else if v != nil {
		if *v < 0 || *v > 1 {
			return RetrievalConfig{}, fmt.Errorf("RELEVANCE_THRESHOLD must be within [0,1], got %v", *v)
		}
		threshold = *v
	}

	k := 4
	if v, err := parseOptionalIntEnv("RETRIEVAL_K"); err != nil {
		return RetrievalConfig{}, err
	} else if v != nil {
		if *v < 1 {
			return RetrievalConfig{}, fmt.Errorf("RETRIEVAL_K must be positive, got %d", *v)
		}
		k = *v
	}

	window := 6
	if v, err := parseOptionalIntEnv("HISTORY_WINDOW"); err != nil {
		return RetrievalConfig{}, err
	} else if v != nil {
		if *v < 0 {
			return RetrievalConfig{}, fmt.Errorf("HISTORY_WINDOW must not be negative, got %d", *v)
		}
		window = *v
	}

	searchTimeout, err := parseDurationEnv("SEARCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return RetrievalConfig{}, err
	}

	generateTimeout, err := parseDurationEnv("GENERATE_TIMEOUT", 60*time.Second)
	if err != nil {
		return RetrievalConfig{}, err
	}

	return RetrievalConfig{
		RelevanceThreshold: threshold,
		K:                  k,
		HistoryWindow:      window,
		SearchTimeout:      searchTimeout,
		GenerateTimeout:    generateTimeout,
	}, nil
}

// IngestConfig drives the offline index build.
type IngestConfig struct {
	DocsDir      string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func loadIngestConfig() (IngestConfig, error) {
	size := 2000
	if v, err := parseOptionalIntEnv("CHUNK_SIZE"); err != nil {
		return IngestConfig{}, err
	} else if v != nil {
		size = *v
	}
	if size < 1 {
		return IngestConfig{}, fmt.Errorf("CHUNK_SIZE must be positive, got %d", size)
	}

	overlap := 500
	if v, err := parseOptionalIntEnv("CHUNK_OVERLAP"); err != nil {
		return IngestConfig{}, err
	} else if v != nil {
		overlap = *v
	}
	if overlap < 0 || overlap >= size {
		return IngestConfig{}, fmt.Errorf("CHUNK_OVERLAP (%d) must be within [0, CHUNK_SIZE)", overlap)
	}

	batch := 16
	if v, err := parseOptionalIntEnv("INGEST_BATCH_SIZE"); err != nil {
		return IngestConfig{}, err
	} else if v != nil && *v > 0 {
		batch = *v
	}

	return IngestConfig{
		DocsDir:      getEnvOrDefault("DOCS_DIR", "base"),
		ChunkSize:    size,
		ChunkOverlap: overlap,
		BatchSize:    batch,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
