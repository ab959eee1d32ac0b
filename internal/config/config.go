package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the gateway reads. Loaded once at startup
// and immutable afterwards.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Security SecurityConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	security, err := loadSecurityConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Security: security}, nil
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
		// allow ":8080" or "127.0.0.1:8080" directly
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the backend chat model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing model credentials: provide ARK_API_KEY + Model, or the AK/SK pair")
	}

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
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
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

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SecurityConfig carries the process-wide limits and capability gates.
type SecurityConfig struct {
	MaxPromptLen   int
	MaxQueryLen    int
	MaxParts       int
	MaxInlineBytes int

	SessionTimeout time.Duration
	MaxHistory     int

	CacheSize int
	CacheTTL  time.Duration

	AllowedDirs []string
	EnableWrite bool
	EnableExec  bool
}

func loadSecurityConfig() (SecurityConfig, error) {
	maxPrompt, err := parseIntEnv("TOOLGATE_MAX_PROMPT_LEN", 50000)
	if err != nil {
		return SecurityConfig{}, err
	}
	maxQuery, err := parseIntEnv("TOOLGATE_MAX_QUERY_LEN", 1000)
	if err != nil {
		return SecurityConfig{}, err
	}
	maxParts, err := parseIntEnv("TOOLGATE_MAX_PARTS", 16)
	if err != nil {
		return SecurityConfig{}, err
	}
	maxInline, err := parseIntEnv("TOOLGATE_MAX_INLINE_BYTES", 10*1024*1024)
	if err != nil {
		return SecurityConfig{}, err
	}
	maxHistory, err := parseIntEnv("TOOLGATE_MAX_HISTORY", 40)
	if err != nil {
		return SecurityConfig{}, err
	}
	cacheSize, err := parseIntEnv("TOOLGATE_CACHE_SIZE", 100)
	if err != nil {
		return SecurityConfig{}, err
	}

	sessionTimeout, err := parseDurationEnv("TOOLGATE_SESSION_TIMEOUT", 30*time.Minute)
	if err != nil {
		return SecurityConfig{}, err
	}
	cacheTTL, err := parseDurationEnv("TOOLGATE_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return SecurityConfig{}, err
	}

	enableWrite, err := parseBoolEnv("TOOLGATE_ENABLE_WRITE", false)
	if err != nil {
		return SecurityConfig{}, err
	}
	enableExec, err := parseBoolEnv("TOOLGATE_ENABLE_EXEC", false)
	if err != nil {
		return SecurityConfig{}, err
	}

	var allowedDirs []string
	if raw := strings.TrimSpace(os.Getenv("TOOLGATE_ALLOWED_DIRS")); raw != "" {
		for _, dir := range strings.Split(raw, ":") {
			if dir = strings.TrimSpace(dir); dir != "" {
				allowedDirs = append(allowedDirs, dir)
			}
		}
	}

	return SecurityConfig{
		MaxPromptLen:   maxPrompt,
		MaxQueryLen:    maxQuery,
		MaxParts:       maxParts,
		MaxInlineBytes: maxInline,
		SessionTimeout: sessionTimeout,
		MaxHistory:     maxHistory,
		CacheSize:      cacheSize,
		CacheTTL:       cacheTTL,
		AllowedDirs:    allowedDirs,
		EnableWrite:    enableWrite,
		EnableExec:     enableExec,
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

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
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
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
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
