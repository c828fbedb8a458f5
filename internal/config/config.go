package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional YAML file whose keys mirror the environment
// variable names. Environment variables take precedence over the file.
const ConfigFileEnv = "PRODSCOUT_CONFIG"

type Config struct {
	Port              string
	StoreBackend      string
	PostgresURL       string
	RedisURL          string
	TemporalAddress   string
	TemporalTaskQueue string

	LLMProvider      string
	LLMModel         string
	LLMBaseURL       string
	LLMTemperature   float64
	LLMTimeout       time.Duration
	OpenAIAPIKey     string
	OpenRouterAPIKey string

	KeywordCount         int
	DefaultKeywordWeight int

	ProductHuntAPIURL      string
	ProductHuntToken       string
	DirectoryMaxPerKeyword int
	DirectoryRPS           float64
	SearchConcurrency      int

	CozeAPIURL          string
	CozeAPIKey          string
	CozeWorkflowID      string
	ResolveTimeout      time.Duration
	ResolveMaxRedirects int
	EnrichmentTimeout   time.Duration
	UseCanonicalLink    bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	postgresURL := getEnv(v, "POSTGRES_URL", "")
	if postgresURL == "" {
		postgresURL = buildPostgresURL(v)
	}
	return Config{
		Port:              getEnv(v, "PORT", "3001"),
		StoreBackend:      strings.ToLower(getEnv(v, "STORE_BACKEND", "memory")),
		PostgresURL:       postgresURL,
		RedisURL:          getEnv(v, "REDIS_URL", "redis://localhost:6379/0"),
		TemporalAddress:   getEnv(v, "TEMPORAL_ADDRESS", ""),
		TemporalTaskQueue: getEnv(v, "TEMPORAL_TASK_QUEUE", "prodscout-enrichment"),

		LLMProvider:      strings.ToLower(getEnv(v, "LLM_PROVIDER", "openai")),
		LLMModel:         getEnv(v, "LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:       getEnv(v, "LLM_BASE_URL", ""),
		LLMTemperature:   getEnvFloat(v, "LLM_TEMPERATURE", 0.2),
		LLMTimeout:       getEnvSeconds(v, "LLM_TIMEOUT_SECONDS", 35),
		OpenAIAPIKey:     getEnv(v, "OPENAI_API_KEY", ""),
		OpenRouterAPIKey: getEnv(v, "OPENROUTER_API_KEY", ""),

		KeywordCount:         getEnvInt(v, "KEYWORD_COUNT", 10),
		DefaultKeywordWeight: getEnvInt(v, "DEFAULT_KEYWORD_WEIGHT", 10),

		ProductHuntAPIURL:      getEnv(v, "PRODUCTHUNT_API_URL", "https://api.producthunt.com/v2/api/graphql"),
		ProductHuntToken:       getEnv(v, "PRODUCTHUNT_DEVELOPER_TOKEN", ""),
		DirectoryMaxPerKeyword: getEnvInt(v, "DIRECTORY_MAX_PER_KEYWORD", 50),
		DirectoryRPS:           getEnvFloat(v, "DIRECTORY_RPS", 5),
		SearchConcurrency:      getEnvInt(v, "SEARCH_CONCURRENCY", 4),

		CozeAPIURL:          getEnv(v, "COZE_API_URL", "https://api.coze.cn"),
		CozeAPIKey:          getEnv(v, "COZE_API_KEY", ""),
		CozeWorkflowID:      getEnv(v, "COZE_WORKFLOW_ID", ""),
		ResolveTimeout:      getEnvSeconds(v, "RESOLVE_TIMEOUT_SECONDS", 5),
		ResolveMaxRedirects: getEnvInt(v, "RESOLVE_MAX_REDIRECTS", 5),
		EnrichmentTimeout:   getEnvSeconds(v, "ENRICHMENT_TIMEOUT_SECONDS", 120),
		UseCanonicalLink:    getEnvBool(v, "USE_CANONICAL_LINK", true),

		LogLevel:  strings.ToLower(getEnv(v, "LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv(v, "LOG_FORMAT", "json")),
	}
}

func getEnv(v *viper.Viper, key, fallback string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(v *viper.Viper, key string, fallback int) int {
	if value := getEnv(v, key, ""); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(v *viper.Viper, key string, fallback float64) float64 {
	if value := getEnv(v, key, ""); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(v *viper.Viper, key string, fallback bool) bool {
	if value := getEnv(v, key, ""); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvSeconds(v *viper.Viper, key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(v, key, fallback)) * time.Second
}

func buildPostgresURL(v *viper.Viper) string {
	user := getEnv(v, "POSTGRES_USER", "prodscout")
	password := getEnv(v, "POSTGRES_PASSWORD", "prodscout")
	host := getEnv(v, "POSTGRES_HOST", "localhost")
	port := getEnv(v, "POSTGRES_PORT", "5432")
	database := getEnv(v, "POSTGRES_DB", "prodscout")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
