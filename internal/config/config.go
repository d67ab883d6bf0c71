package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	APIStyleAzure  = "azure"
	APIStyleOpenAI = "openai"

	ChatProviderOpenAI = "openai"
	ChatProviderGemini = "gemini"

	StorageBackendMinio = "minio"
	StorageBackendS3    = "s3"

	ParsePolicyStrict  = "strict"
	ParsePolicyLenient = "lenient"
)

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	Port         string
	LogLevel     string
	DatabasePath string
	// PromptDir overrides the embedded prompt templates when set.
	PromptDir string

	// Vision (image captioning)
	VisionEndpoint string
	VisionAPIKey   string

	// OpenAI-compatible model endpoint
	OpenAIEndpoint       string
	OpenAIAPIKey         string
	OpenAIAPIStyle       string
	OpenAIAPIVersion     string
	OpenAIDeployment     string
	OpenAIAssistantWebID string
	OpenAIAssistantPDFID string

	// Chat provider for the single-turn strategy
	ChatProvider string
	GeminiAPIKey string
	GeminiModel  string

	// Blob storage
	StorageBackend   string
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	UploadURLTTL        time.Duration
	UploadSweepInterval time.Duration

	CORSAllowedOrigins []string

	ParsePolicy           string
	AssistantPollInterval time.Duration
	AssistantPollTimeout  time.Duration
	UpstreamTimeout       time.Duration
	FetchTimeout          time.Duration

	MaxUploadSize        int64
	EnrichConcurrency    int
	AllowPrivateNetworks bool
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// A missing .env is fine: production injects real environment variables.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) string) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		Port:         e.get("PORT", "8080"),
		LogLevel:     e.get("LOG_LEVEL", "info"),
		DatabasePath: e.get("DATABASE_PATH", "data/accessibility.db"),
		PromptDir:    e.get("PROMPT_DIR", ""),

		VisionEndpoint: strings.TrimRight(e.get("VISION_ENDPOINT", ""), "/"),
		VisionAPIKey:   e.get("VISION_API_KEY", ""),

		OpenAIEndpoint:       strings.TrimRight(e.get("OPENAI_ENDPOINT", ""), "/"),
		OpenAIAPIKey:         e.get("OPENAI_API_KEY", ""),
		OpenAIAPIStyle:       strings.ToLower(e.get("OPENAI_API_STYLE", APIStyleAzure)),
		OpenAIAPIVersion:     e.get("OPENAI_API_VERSION", "2024-05-01-preview"),
		OpenAIDeployment:     e.get("OPENAI_DEPLOYMENT", ""),
		OpenAIAssistantWebID: e.get("OPENAI_ASSISTANT_WEB_ID", ""),
		OpenAIAssistantPDFID: e.get("OPENAI_ASSISTANT_PDF_ID", ""),

		ChatProvider: strings.ToLower(e.get("CHAT_PROVIDER", ChatProviderOpenAI)),
		GeminiAPIKey: e.get("GEMINI_API_KEY", ""),
		GeminiModel:  e.get("GEMINI_MODEL", "gemini-2.5-flash"),

		StorageBackend:   strings.ToLower(e.get("STORAGE_BACKEND", StorageBackendMinio)),
		StorageEndpoint:  e.get("STORAGE_ENDPOINT", "localhost:9000"),
		StorageRegion:    e.get("STORAGE_REGION", "us-east-1"),
		StorageAccessKey: e.get("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: e.get("STORAGE_SECRET_KEY", ""),
		StorageBucket:    e.get("STORAGE_BUCKET", ""),
		StorageUseSSL:    e.getBool("STORAGE_USE_SSL", false),

		UploadURLTTL:        e.getDuration("UPLOAD_URL_TTL", time.Hour),
		UploadSweepInterval: e.getDuration("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),

		CORSAllowedOrigins: splitList(e.get("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ParsePolicy:           strings.ToLower(e.get("PARSE_POLICY", ParsePolicyStrict)),
		AssistantPollInterval: e.getDuration("ASSISTANT_POLL_INTERVAL", 500*time.Millisecond),
		AssistantPollTimeout:  e.getDuration("ASSISTANT_POLL_TIMEOUT", 2*time.Minute),
		UpstreamTimeout:       e.getDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		FetchTimeout:          e.getDuration("FETCH_TIMEOUT", 15*time.Second),

		MaxUploadSize:        int64(e.getInt("MAX_UPLOAD_SIZE", 10<<20)),
		EnrichConcurrency:    e.getInt("ENRICH_CONCURRENCY", 4),
		AllowPrivateNetworks: e.getBool("ALLOW_PRIVATE_NETWORKS", false),
	}

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error

	required := []struct {
		key, value string
	}{
		{"VISION_ENDPOINT", c.VisionEndpoint},
		{"VISION_API_KEY", c.VisionAPIKey},
		{"OPENAI_ENDPOINT", c.OpenAIEndpoint},
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"OPENAI_DEPLOYMENT", c.OpenAIDeployment},
		{"OPENAI_ASSISTANT_WEB_ID", c.OpenAIAssistantWebID},
		{"OPENAI_ASSISTANT_PDF_ID", c.OpenAIAssistantPDFID},
		{"STORAGE_ACCESS_KEY", c.StorageAccessKey},
		{"STORAGE_SECRET_KEY", c.StorageSecretKey},
		{"STORAGE_BUCKET", c.StorageBucket},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", c.Port))
	}

	switch c.OpenAIAPIStyle {
	case APIStyleAzure, APIStyleOpenAI:
	default:
		errs = append(errs, fmt.Errorf("OPENAI_API_STYLE must be %q or %q, got %q", APIStyleAzure, APIStyleOpenAI, c.OpenAIAPIStyle))
	}

	switch c.ChatProvider {
	case ChatProviderOpenAI:
	case ChatProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when CHAT_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("CHAT_PROVIDER must be %q or %q, got %q", ChatProviderOpenAI, ChatProviderGemini, c.ChatProvider))
	}

	switch c.StorageBackend {
	case StorageBackendMinio, StorageBackendS3:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageBackendMinio, StorageBackendS3, c.StorageBackend))
	}

	switch c.ParsePolicy {
	case ParsePolicyStrict, ParsePolicyLenient:
	default:
		errs = append(errs, fmt.Errorf("PARSE_POLICY must be %q or %q, got %q", ParsePolicyStrict, ParsePolicyLenient, c.ParsePolicy))
	}

	durations := []struct {
		key   string
		value time.Duration
	}{
		{"UPLOAD_URL_TTL", c.UploadURLTTL},
		{"UPLOAD_SWEEP_INTERVAL", c.UploadSweepInterval},
		{"ASSISTANT_POLL_INTERVAL", c.AssistantPollInterval},
		{"ASSISTANT_POLL_TIMEOUT", c.AssistantPollTimeout},
		{"UPSTREAM_TIMEOUT", c.UpstreamTimeout},
		{"FETCH_TIMEOUT", c.FetchTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.key))
		}
	}

	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.EnrichConcurrency < 1 || c.EnrichConcurrency > 64 {
		errs = append(errs, fmt.Errorf("ENRICH_CONCURRENCY must be 1-64, got %d", c.EnrichConcurrency))
	}

	return errors.Join(errs...)
}

type env struct {
	lookup func(string) string
	errs   []error
}

func (e *env) get(key, defaultValue string) string {
	if value := strings.TrimSpace(e.lookup(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e *env) getInt(key string, defaultValue int) int {
	s := e.get(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, s))
		return defaultValue
	}
	return v
}

func (e *env) getBool(key string, defaultValue bool) bool {
	s := e.get(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, s))
		return defaultValue
	}
	return v
}

func (e *env) getDuration(key string, defaultValue time.Duration) time.Duration {
	s := e.get(key, "")
	if s == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, s))
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
