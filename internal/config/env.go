package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string

	// Session cookie signing.
	SessionSecret     string
	DefaultChannelIDs []string

	// Video platform.
	YouTubeAPIKey       string
	TranscriptLanguages []string
	MinVideoDurationSec int

	// Generation backend.
	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	// Vector index.
	VectorIndexName string
	ChunkTokens     int
	OverlapTokens   int
	EmbedBatchSize  int
	RetrievalTopK   int

	OnboardWorkers int

	// Optional transcript archive (S3). Disabled when creds are absent.
	AwsAccessKey       string
	AwsSecretKey       string
	AwsRegion          string
	BucketName         string
	ArchiveTranscripts bool
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),

		SessionSecret:     getEnv("SESSION_SECRET", ""),
		DefaultChannelIDs: getEnvList("DEFAULT_CHANNEL_IDS", nil),

		YouTubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),
		TranscriptLanguages: getEnvList("TRANSCRIPT_LANGUAGES", []string{"en", "en-IN"}),
		MinVideoDurationSec: getEnvInt("MIN_VIDEO_DURATION_SEC", 60),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),

		VectorIndexName: getEnv("VECTOR_INDEX_NAME", "tubesage"),
		ChunkTokens:     getEnvInt("CHUNK_TOKENS", 500),
		OverlapTokens:   getEnvInt("OVERLAP_TOKENS", 50),
		EmbedBatchSize:  getEnvInt("EMBED_BATCH_SIZE", 16),
		RetrievalTopK:   getEnvInt("RETRIEVAL_TOP_K", 5),

		OnboardWorkers: getEnvInt("ONBOARD_WORKERS", 2),

		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "us-east-2"),
		BucketName:         getEnv("BUCKET_NAME", "tubesage-transcripts"),
		ArchiveTranscripts: getEnvBool("ARCHIVE_TRANSCRIPTS", false),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
