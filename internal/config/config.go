package config

import (
	"os"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Mailer   MailerConfig
	AI       AIConfig
	Auth     AuthConfig
	Ingest   IngestConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Addr string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailerConfig struct {
	APIKey      string
	FromAddress string
}

type AIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
}

type AuthConfig struct {
	JWTSecret    string
	JWTAccessTTL string
	AllowSignup  string
}

// IngestConfig - 웹훅 수집 파이프라인 설정
//
// OwnerID: 단일 테넌트 모드에서 모든 메트릭 행에 붙는 소유자 식별자
// DedupeTTL: idempotency key 보관 시간 (예: "10m", 비어 있으면 dedupe 비활성)
type IngestConfig struct {
	OwnerID   string
	DedupeTTL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr: getenv("SERVER_ADDR", ":8080"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Mailer: MailerConfig{
			APIKey:      os.Getenv("RESEND_API_KEY"),
			FromAddress: getenv("MAIL_FROM", "alerts@mqtt-guard.local"),
		},
		AI: AIConfig{
			APIKey:         os.Getenv("AI_API_KEY"),
			Model:          getenv("AI_MODEL", "gemini-2.0-flash"),
			EmbeddingModel: getenv("AI_EMBEDDING_MODEL", "text-embedding-004"),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTAccessTTL: getenv("JWT_ACCESS_TTL", "1h"),
			AllowSignup:  os.Getenv("ALLOW_SIGNUP"),
		},
		Ingest: IngestConfig{
			OwnerID:   getenv("INGEST_OWNER_ID", "default"),
			DedupeTTL: os.Getenv("INGEST_DEDUPE_TTL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
