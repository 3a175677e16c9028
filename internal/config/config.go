// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
)

const productionEnvironment = "production"

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
	Gatekeeper  GatekeeperConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

type RateLimiterConfig struct {
	Rule          domain.RateLimitRule
	SweepInterval time.Duration
}

type GatekeeperConfig struct {
	Environment       string
	AllowedOrigins    []string
	TrustProxyHeaders bool
	Policy            domain.Policy
}

// Production indica se o bloqueio de ferramentas, a validação de origem e o HSTS estão ativos.
func (g GatekeeperConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(g.Environment), productionEnvironment)
}

type LogConfig struct {
	Level string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", "memory"))
	if storageType != "memory" && storageType != "redis" {
		return Config{}, fmt.Errorf("unsupported STORAGE_TYPE: %s", storageType)
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	gatekeeperConfig, err := buildGatekeeperConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		RateLimiter: rateLimiterConfig,
		Gatekeeper:  gatekeeperConfig,
		Log:         LogConfig{Level: getEnv("LOG_LEVEL", "info")},
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Prefix:   getEnv("REDIS_PREFIX", "coachgate:rl:"),
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	windowSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}
	maxRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_MAX_REQUESTS", "100"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_MAX_REQUESTS: %w", err)
	}
	sweepSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", "300"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_SWEEP_INTERVAL_SECONDS: %w", err)
	}

	rule := domain.RateLimitRule{
		Requests: maxRequests,
		Window:   time.Duration(windowSeconds) * time.Second,
	}
	if !rule.Valid() {
		return RateLimiterConfig{}, fmt.Errorf("rate limit window and max requests must be positive")
	}
	if sweepSeconds < 0 {
		sweepSeconds = 0
	}

	return RateLimiterConfig{
		Rule:          rule,
		SweepInterval: time.Duration(sweepSeconds) * time.Second,
	}, nil
}

func buildGatekeeperConfig() (GatekeeperConfig, error) {
	origins, err := parseAllowedOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	if err != nil {
		return GatekeeperConfig{}, err
	}

	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY_HEADERS", "false"))
	if err != nil {
		return GatekeeperConfig{}, fmt.Errorf("invalid TRUST_PROXY_HEADERS: %w", err)
	}

	policy := domain.DefaultPolicy()
	if path := strings.TrimSpace(os.Getenv("GATEKEEPER_POLICY_FILE")); path != "" {
		policy, err = LoadPolicyFile(path, policy)
		if err != nil {
			return GatekeeperConfig{}, err
		}
	}

	return GatekeeperConfig{
		Environment:       getEnv("ENVIRONMENT", "development"),
		AllowedOrigins:    origins,
		TrustProxyHeaders: trustProxy,
		Policy:            policy,
	}, nil
}

// parseAllowedOrigins separa a lista por vírgula, ignora itens vazios e exige scheme://host.
func parseAllowedOrigins(raw string) ([]string, error) {
	var origins []string
	for _, item := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(item)
		if origin == "" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOWED_ORIGINS entry %q: %w", origin, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid ALLOWED_ORIGINS entry %q: scheme and host are required", origin)
		}
		origins = append(origins, origin)
	}
	return origins, nil
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
