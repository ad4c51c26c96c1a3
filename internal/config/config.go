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

// Config aggregates every subsystem's settings.
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Store      StoreConfig
	Classifier ClassifierConfig
	Routing    RoutingConfig
	External   ExternalConfig
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
	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}
	classifier, err := loadClassifierConfig()
	if err != nil {
		return nil, err
	}
	routing, err := loadRoutingConfig()
	if err != nil {
		return nil, err
	}
	externalCfg, err := loadExternalConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		Store:      storeCfg,
		Classifier: classifier,
		Routing:    routing,
		External:   externalCfg,
	}, nil
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

// AIConfig describes the language-model backend.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	RequestTimeout time.Duration
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel instantiates the configured chat model.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + MODEL, or the AK/SK pair")
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
	timeout, err := parseDurationEnv("AI_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		RequestTimeout: timeout,
	}, nil
}

// StoreConfig selects and configures the session/cache backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend    string
	SessionTTL time.Duration

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORE_BACKEND", "memory"))
	if backend != "memory" && backend != "redis" {
		return StoreConfig{}, fmt.Errorf("invalid STORE_BACKEND value: %q", backend)
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return StoreConfig{}, err
	}

	db := 0
	if v, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return StoreConfig{}, err
	} else if v != nil {
		db = *v
	}

	return StoreConfig{
		Backend:        backend,
		SessionTTL:     sessionTTL,
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:        db,
		RedisNamespace: getEnvOrDefault("REDIS_NAMESPACE", "wayfinder"),
	}, nil
}

// ClassifierConfig carries the hybrid combination constants.
type ClassifierConfig struct {
	ModelWeight         float64
	PatternWeight       float64
	AgreementBonus      float64
	ConfidenceThreshold float64
	MaxQueryBytes       int
}

func loadClassifierConfig() (ClassifierConfig, error) {
	modelWeight, err := parseFloatEnv("CLASSIFIER_MODEL_WEIGHT", 0.8)
	if err != nil {
		return ClassifierConfig{}, err
	}
	patternWeight, err := parseFloatEnv("CLASSIFIER_PATTERN_WEIGHT", 0.2)
	if err != nil {
		return ClassifierConfig{}, err
	}
	bonus, err := parseFloatEnv("CLASSIFIER_AGREEMENT_BONUS", 0.3)
	if err != nil {
		return ClassifierConfig{}, err
	}
	threshold, err := parseFloatEnv("CLASSIFIER_CONFIDENCE_THRESHOLD", 0.5)
	if err != nil {
		return ClassifierConfig{}, err
	}

	maxBytes := 2000
	if v, err := parseOptionalIntEnv("CLASSIFIER_MAX_QUERY_BYTES"); err != nil {
		return ClassifierConfig{}, err
	} else if v != nil && *v > 0 {
		maxBytes = *v
	}

	return ClassifierConfig{
		ModelWeight:         modelWeight,
		PatternWeight:       patternWeight,
		AgreementBonus:      bonus,
		ConfidenceThreshold: threshold,
		MaxQueryBytes:       maxBytes,
	}, nil
}

// RoutingConfig carries the data-routing thresholds and TTLs.
type RoutingConfig struct {
	ConfidenceThreshold float64
	WeatherTTL          time.Duration
	AttractionsTTL      time.Duration
}

func loadRoutingConfig() (RoutingConfig, error) {
	threshold, err := parseFloatEnv("ROUTING_CONFIDENCE_THRESHOLD", 0.5)
	if err != nil {
		return RoutingConfig{}, err
	}
	weatherTTL, err := parseDurationEnv("WEATHER_CACHE_TTL", time.Hour)
	if err != nil {
		return RoutingConfig{}, err
	}
	attractionsTTL, err := parseDurationEnv("ATTRACTIONS_CACHE_TTL", time.Hour)
	if err != nil {
		return RoutingConfig{}, err
	}

	return RoutingConfig{
		ConfidenceThreshold: threshold,
		WeatherTTL:          weatherTTL,
		AttractionsTTL:      attractionsTTL,
	}, nil
}

// ExternalConfig configures the weather, attractions and geocoding clients.
type ExternalConfig struct {
	WeatherAPIKey  string
	WeatherBaseURL string

	GeoapifyAPIKey  string
	GeoapifyBaseURL string

	NominatimBaseURL   string
	NominatimUserAgent string

	RequestTimeout time.Duration
}

// WeatherEnabled reports whether the weather fetcher can be wired.
func (c ExternalConfig) WeatherEnabled() bool { return c.WeatherAPIKey != "" }

// AttractionsEnabled reports whether the attractions fetcher can be wired.
func (c ExternalConfig) AttractionsEnabled() bool { return c.GeoapifyAPIKey != "" }

func loadExternalConfig() (ExternalConfig, error) {
	timeout, err := parseDurationEnv("EXTERNAL_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return ExternalConfig{}, err
	}

	return ExternalConfig{
		WeatherAPIKey:      strings.TrimSpace(os.Getenv("WEATHER_API_KEY")),
		WeatherBaseURL:     strings.TrimSpace(os.Getenv("WEATHER_BASE_URL")),
		GeoapifyAPIKey:     strings.TrimSpace(os.Getenv("GEOAPIFY_API_KEY")),
		GeoapifyBaseURL:    strings.TrimSpace(os.Getenv("GEOAPIFY_BASE_URL")),
		NominatimBaseURL:   strings.TrimSpace(os.Getenv("NOMINATIM_BASE_URL")),
		NominatimUserAgent: getEnvOrDefault("NOMINATIM_USER_AGENT", "wayfinder-backend/1.0"),
		RequestTimeout:     timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
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
