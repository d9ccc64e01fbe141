package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Insights InsightsConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
}

// InsightsConfig задает, куда сессии AI-аналитики отправляют запросы.
// Пустой ProxyURL означает вызов прокси внутри процесса.
type InsightsConfig struct {
	ProxyURL     string
	ProxyTimeout time.Duration
}

type EventsConfig struct {
	AMQPURL      string
	AMQPExchange string
}

// Load собирает конфигурацию сервера из окружения и .env.
// Ошибки всех переменных возвращаются вместе.
func Load() (Config, error) {
	if err := loadEnv(); err != nil {
		return Config{}, err
	}

	env := &envReader{}
	cfg := Config{
		Env: getEnv("APP_ENV", "local"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         env.Int("SERVER_PORT", 8080),
			ReadTimeout:  env.Duration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: env.Duration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  env.Duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  parseCSVEnv("SERVER_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            env.Int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "finance"),
			Password:        getEnv("DB_PASSWORD", "finance"),
			Name:            getEnv("DB_NAME", "finance_tracker"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.Int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    env.Int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: env.Duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: env.Duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			Migrate:         env.Bool("DB_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			JWTIssuer:          getEnv("JWT_ISSUER", "finance-tracker"),
			AccessTokenTTL:     env.Duration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL:    env.Duration("JWT_REFRESH_TTL", 7*24*time.Hour),
			RateLimitPerMinute: env.Int("AUTH_RATE_LIMIT_PER_MINUTE", 60),
			RateLimitBurst:     env.Int("AUTH_RATE_LIMIT_BURST", 10),
		},
		AI: readAI(env),
		Insights: InsightsConfig{
			ProxyURL:     strings.TrimSpace(getEnv("INSIGHTS_PROXY_URL", "")),
			ProxyTimeout: env.Duration("INSIGHTS_PROXY_TIMEOUT", 30*time.Second),
		},
		Events: EventsConfig{
			AMQPURL:      strings.TrimSpace(getEnv("AMQP_URL", "")),
			AMQPExchange: getEnv("AMQP_EXCHANGE", "finance.events"),
		},
	}

	if err := env.err(); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

// LoadAI загружает только настройки AI-провайдера. Используется serverless-функцией.
func LoadAI() (AIConfig, error) {
	if err := loadEnv(); err != nil {
		return AIConfig{}, err
	}

	cfg, err := loadAI()
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

type providerDefaults struct {
	baseURL string
	model   string
	keyEnv  string
}

var providers = map[string]providerDefaults{
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", model: "google/gemini-2.5-flash", keyEnv: "OPENROUTER_API_KEY"},
	"groq":       {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.1-8b-instant", keyEnv: "GROQ_API_KEY"},
	"gemini":     {baseURL: "https://generativelanguage.googleapis.com/v1beta", model: "gemini-2.5-flash", keyEnv: "GEMINI_API_KEY"},
}

func loadAI() (AIConfig, error) {
	env := &envReader{}
	cfg := readAI(env)
	return cfg, env.err()
}

func readAI(env *envReader) AIConfig {
	provider := strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "openrouter")))
	defaults := providers[provider]

	apiKey := strings.TrimSpace(getEnv("AI_API_KEY", ""))
	if apiKey == "" && defaults.keyEnv != "" {
		apiKey = strings.TrimSpace(getEnv(defaults.keyEnv, ""))
	}

	return AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            getEnv("AI_BASE_URL", defaults.baseURL),
		Model:              getEnv("AI_MODEL", defaults.model),
		Timeout:            env.Duration("AI_TIMEOUT", 20*time.Second),
		RateLimitPerMinute: env.Int("AI_RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     env.Int("AI_RATE_LIMIT_BURST", 10),
		MaxOutputTokens:    env.Int("AI_MAX_OUTPUT_TOKENS", 500),
	}
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be greater than 0")
	}

	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT_REFRESH_TTL must be greater than 0")
	}

	if c.Auth.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.Auth.RateLimitBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.Insights.ProxyURL != "" {
		parsed, err := url.Parse(c.Insights.ProxyURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("INSIGHTS_PROXY_URL must be an absolute URL")
		}
	}

	if c.Events.AMQPURL != "" && strings.TrimSpace(c.Events.AMQPExchange) == "" {
		return fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set")
	}

	return c.AI.validate()
}

// Ключ не проверяется: его отсутствие обрабатывается при каждом запросе к прокси.
func (c AIConfig) validate() error {
	if _, ok := providers[c.Provider]; !ok {
		return fmt.Errorf("AI_PROVIDER must be one of openrouter, groq, gemini")
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("AI_MAX_OUTPUT_TOKENS must be greater than 0")
	}

	return nil
}

// envReader читает типизированные переменные и копит ошибки разбора.
type envReader struct {
	errs []error
}

func (r *envReader) Int(key string, fallback int) int {
	value, err := parseIntEnv(key, fallback)
	r.collect(err)
	return value
}

func (r *envReader) Duration(key string, fallback time.Duration) time.Duration {
	value, err := parseDurationEnv(key, fallback)
	r.collect(err)
	return value
}

func (r *envReader) Bool(key string, fallback bool) bool {
	value, err := parseBoolEnv(key, fallback)
	r.collect(err)
	return value
}

func (r *envReader) collect(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
