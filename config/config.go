package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
)

// Source names accepted in TRANSCRIPT_SOURCES.
const (
	SourceStore      = "store"
	SourceService    = "service"
	SourceCaptions   = "captions"
	SourceNative     = "native"
	SourceSubtitles  = "ytdlp"
	DefaultLanguage  = "en"
	defaultLLMURL    = "https://api.groq.com/openai/v1"
	defaultServerVer = "1.0.0"
)

var knownSources = map[string]bool{
	SourceStore:     true,
	SourceService:   true,
	SourceCaptions:  true,
	SourceNative:    true,
	SourceSubtitles: true,
}

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`
	Version      string        `json:"version"`

	// Application paths
	LogDir  string `json:"log_dir"`
	TempDir string `json:"temp_dir"`

	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	CORS       CORSConfig       `json:"cors"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Database   DatabaseConfig   `json:"database"`
	LLM        LLMConfig        `json:"llm"`
	Transcript TranscriptConfig `json:"transcript"`
	Cache      CacheConfig      `json:"cache"`
	Spaces     SpacesConfig     `json:"spaces"`
	Supabase   SupabaseConfig   `json:"supabase"`
	YouTube    YouTubeConfig    `json:"youtube"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type LLMConfig struct {
	APIKey         string        `json:"-"`
	BaseURL        string        `json:"base_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
	ChunkDelay     time.Duration `json:"chunk_delay"`
	ModelsFile     string        `json:"models_file"`
	WatchModels    bool          `json:"watch_models"`
	// Temperature overrides the per-mode table when positive.
	Temperature float64 `json:"temperature"`
}

type TranscriptConfig struct {
	// Sources is the fallback order.
	Sources          []string      `json:"sources"`
	Language         string        `json:"language"`
	ServiceURL       string        `json:"service_url"`
	ProxyURL         string        `json:"-"`
	HTTPTimeout      time.Duration `json:"http_timeout"`
	YtDlpPath        string        `json:"ytdlp_path"`
	YtDlpTimeout     time.Duration `json:"ytdlp_timeout"`
	NativeAttempts   int           `json:"native_attempts"`
	NativeRetryDelay time.Duration `json:"native_retry_delay"`
}

type CacheConfig struct {
	RedisURL   string        `json:"-"`
	TTL        time.Duration `json:"ttl"`
	MaxEntries int           `json:"max_entries"`
}

type SpacesConfig struct {
	Enabled   bool   `json:"enabled"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	PathStyle bool   `json:"path_style"`
}

type SupabaseConfig struct {
	URL        string `json:"url"`
	ServiceKey string `json:"-"`
}

type YouTubeConfig struct {
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 15*time.Minute),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),
		Version:      getEnv("VERSION", defaultServerVer),

		LogDir:  getEnv("LOG_DIR", "/var/log/yt-digest"),
		TempDir: getEnv("TEMP_DIR", "/tmp/yt-digest"),

		// Chunked digests of long videos take minutes.
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		CORS: CORSConfig{
			Enabled:        getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "POST", "OPTIONS"},
			),
			AllowedHeaders: getEnvAsStringSlice(
				"CORS_ALLOWED_HEADERS",
				[]string{"Content-Type", "Authorization"},
			),
			ExposedHeaders:   getEnvAsStringSlice("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", "/var/lib/yt-digest/data.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		LLM: LLMConfig{
			APIKey:         getEnv("GROQ_API_KEY", ""),
			BaseURL:        getEnv("LLM_BASE_URL", defaultLLMURL),
			RequestTimeout: getEnvAsDuration("LLM_REQUEST_TIMEOUT", 300*time.Second),
			ChunkDelay:     getEnvAsDuration("LLM_CHUNK_DELAY", 20*time.Second),
			ModelsFile:     getEnv("MODELS_FILE", "model_config.yaml"),
			WatchModels:    getEnvAsBool("MODELS_WATCH", false),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0),
		},

		Transcript: TranscriptConfig{
			Sources: getEnvAsStringSlice(
				"TRANSCRIPT_SOURCES",
				[]string{SourceStore, SourceService, SourceCaptions, SourceNative, SourceSubtitles},
			),
			Language:         getEnv("TRANSCRIPT_LANGUAGE", DefaultLanguage),
			ServiceURL:       getEnv("TRANSCRIPT_SERVICE_URL", "https://www.youtubetranscripts.io/api/fetch-video"),
			ProxyURL:         getEnv("PROXY_URL", ""),
			HTTPTimeout:      getEnvAsDuration("TRANSCRIPT_HTTP_TIMEOUT", 30*time.Second),
			YtDlpPath:        getEnv("YTDLP_PATH", "yt-dlp"),
			YtDlpTimeout:     getEnvAsDuration("YTDLP_TIMEOUT", 2*time.Minute),
			NativeAttempts:   getEnvAsInt("NATIVE_RETRY_ATTEMPTS", 4),
			NativeRetryDelay: getEnvAsDuration("NATIVE_RETRY_DELAY", 5*time.Second),
		},

		Cache: CacheConfig{
			RedisURL:   getEnv("REDIS_URL", ""),
			TTL:        getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			MaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 500),
		},

		Spaces: SpacesConfig{
			Enabled:   getEnvAsBool("SPACES_ENABLED", false),
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Region:    getEnv("SPACES_REGION", "nyc3"),
			Endpoint:  getEnv("SPACES_ENDPOINT", "https://nyc3.digitaloceanspaces.com"),
			Bucket:    getEnv("SPACES_BUCKET", "yt-digest"),
			PathStyle: getEnvAsBool("SPACES_PATH_STYLE", false),
		},

		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		},

		YouTube: YouTubeConfig{
			APIKey:  getEnv("YOUTUBE_API_KEY", ""),
			Timeout: getEnvAsDuration("YOUTUBE_TIMEOUT", 10*time.Second),
		},

		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validateServices(c); err != nil {
		return errors.Wrap(apperrors.ErrConfiguration, err.Error())
	}

	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.TempDir, "temp directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.LLM.RequestTimeout <= 0 {
		return errors.New("llm request timeout must be positive")
	}
	if c.LLM.ChunkDelay < 0 {
		return errors.New("llm chunk delay must not be negative")
	}
	return nil
}

func validateServices(c *Config) error {
	if c.LLM.APIKey == "" {
		return errors.New("GROQ_API_KEY is required")
	}
	if len(c.Transcript.Sources) == 0 {
		return errors.New("at least one transcript source is required")
	}
	for _, name := range c.Transcript.Sources {
		if !knownSources[name] {
			return errors.Errorf("unknown transcript source %q", name)
		}
		if name == SourceService && c.Transcript.ServiceURL == "" {
			return errors.New("TRANSCRIPT_SERVICE_URL is required for the service source")
		}
	}
	if c.Transcript.NativeAttempts < 1 {
		return errors.New("native retry attempts must be at least 1")
	}
	if c.Spaces.Enabled && (c.Spaces.AccessKey == "" || c.Spaces.SecretKey == "") {
		return errors.New("spaces credentials are required when spaces is enabled")
	}
	if c.Supabase.URL != "" && c.Supabase.ServiceKey == "" {
		return errors.New("SUPABASE_SERVICE_ROLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err == nil {
			return intVal
		}
		warnInvalid(key, value, defaultValue, "Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
		warnInvalid(key, value, defaultValue, "Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		floatVal, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return floatVal
		}
		warnInvalid(key, value, defaultValue, "Invalid float, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
		warnInvalid(key, value, defaultValue, "Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return defaultValue
}

func warnInvalid(key, value string, defaultValue any, msg string) {
	logrus.WithFields(logrus.Fields{
		"key":          key,
		"value":        value,
		"defaultValue": defaultValue,
	}).Warn(msg)
}
