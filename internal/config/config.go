package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	ReportCacheTTLSeconds    int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	LLMProvider              string
	OllamaBaseURL            string
	OllamaModel              string
	LLMTimeoutSeconds        int
	GeminiAPIKey             string
	GeminiModel              string
	DefaultLowStockThreshold decimal.Decimal
}

// Load reads configuration from the environment. Outside production a .env
// file is loaded first. CONFIG_FILE may name a YAML file of KEY: value pairs
// that fills in anything the environment leaves unset.
func Load() Config {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	var file map[string]string
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := readFile(path)
		if err != nil {
			log.Printf("[config] ignoring %s: %v", path, err)
		} else {
			file = values
		}
	}
	return fromSource(source{file: file})
}

type source struct {
	file map[string]string
}

// get prefers the environment, then the config file, then fallback.
func (s source) get(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val := s.file[key]; val != "" {
		return val
	}
	return fallback
}

func (s source) positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(s.get(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func fromSource(src source) Config {
	redisDB, err := strconv.Atoi(src.get("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		redisDB = 0
	}
	threshold, err := decimal.NewFromString(src.get("DEFAULT_LOW_STOCK_THRESHOLD", "10"))
	if err != nil || threshold.IsNegative() {
		threshold = decimal.NewFromInt(10)
	}

	return Config{
		Port:                     src.get("PORT", "8080"),
		AllowedOrigin:            src.get("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:              src.get("DATABASE_URL", ""),
		RedisAddr:                src.get("REDIS_ADDR", ""),
		RedisPassword:            src.get("REDIS_PASSWORD", ""),
		RedisDB:                  redisDB,
		ReportCacheTTLSeconds:    src.positiveInt("REPORT_CACHE_TTL_SECONDS", 30),
		AuthSecret:               strings.TrimSpace(src.get("AUTH_SECRET", "")),
		AccessTokenTTLMinutes:    src.positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		LLMProvider:              strings.ToLower(strings.TrimSpace(src.get("LLM_PROVIDER", "ollama"))),
		OllamaBaseURL:            src.get("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:              src.get("OLLAMA_MODEL", "llama3.2"),
		LLMTimeoutSeconds:        src.positiveInt("LLM_TIMEOUT_SECONDS", 30),
		GeminiAPIKey:             strings.TrimSpace(src.get("GEMINI_API_KEY", "")),
		GeminiModel:              src.get("GEMINI_MODEL", "gemini-1.5-flash"),
		DefaultLowStockThreshold: threshold,
	}
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed map[string]interface{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	values := make(map[string]string, len(parsed))
	for key, val := range parsed {
		if val == nil {
			continue
		}
		values[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(val)
	}
	return values, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
