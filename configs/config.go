package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingConfig = errors.New("missing required configuration")

const (
	MediaStorageR2     = "r2"
	MediaStorageInline = "inline"

	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type OpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Ark struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

type Generation struct {
	Provider string
	OpenAI   OpenAI
	Ark      Ark
	Timeout  time.Duration
	Cooldown time.Duration
}

// Steps holds the required flag of each capture step.
type Steps struct {
	RequireDrawing bool
	RequireWord    bool
	RequireImage   bool
	RequireAudio   bool
}

type Config struct {
	DatabaseURL      string
	DBTimeout        time.Duration
	MediaStorage     string
	R2               R2
	UploadTimeout    time.Duration
	Generation       Generation
	Steps            Steps
	SecretKey        string
	CookieName       string
	RedisURI         string
	Port             string
	PostCacheTTL     time.Duration
	FailureThreshold int
	FallbackMessage  string
	SnapshotPath     string
	SnapshotSchedule string
}

func LoadConfig() (*Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		d, err := getDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	boolean := func(key string, def bool) bool {
		b, err := getBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return b
	}

	threshold, err := getInt("COMMIT_FAILURE_THRESHOLD", 3)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", getEnv("POSTGRES_URI", "")),
		DBTimeout:     duration("DB_TIMEOUT", 5*time.Second),
		MediaStorage:  strings.ToLower(getEnv("MEDIA_STORAGE", MediaStorageR2)),
		UploadTimeout: duration("UPLOAD_TIMEOUT", 30*time.Second),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		Generation: Generation{
			Provider: strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderOpenAI)),
			OpenAI: OpenAI{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
			},
			Ark: Ark{
				APIKey:    getEnv("ARK_API_KEY", ""),
				AccessKey: getEnv("ARK_ACCESS_KEY", ""),
				SecretKey: getEnv("ARK_SECRET_KEY", ""),
				Model:     getEnv("ARK_MODEL", ""),
				BaseURL:   getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
				Region:    getEnv("ARK_REGION", "cn-beijing"),
			},
			Timeout:  duration("GENERATION_TIMEOUT", 30*time.Second),
			Cooldown: duration("POEM_COOLDOWN", 10*time.Second),
		},
		Steps: Steps{
			RequireDrawing: boolean("REQUIRE_DRAWING", false),
			RequireWord:    boolean("REQUIRE_WORD", false),
			RequireImage:   boolean("REQUIRE_IMAGE", false),
			RequireAudio:   boolean("REQUIRE_AUDIO", false),
		},
		SecretKey:        getEnv("SECRET_KEY", ""),
		CookieName:       getEnv("COOKIE_NAME", "walk_session"),
		RedisURI:         getEnv("REDIS_URI", ""),
		Port:             getEnv("PORT", "3000"),
		PostCacheTTL:     duration("POST_CACHE_TTL", 60*time.Second),
		FailureThreshold: threshold,
		FallbackMessage: getEnv("FALLBACK_MESSAGE",
			"We could not save your walk right now. Please share it with the community channel instead."),
		SnapshotPath:     getEnv("SNAPSHOT_PATH", "public/gallery.html"),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@every 00h15m00s"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every missing credential. A missing credential is fatal,
// never retried.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("DATABASE_URL", c.DatabaseURL)
	require("SECRET_KEY", c.SecretKey)

	switch c.MediaStorage {
	case MediaStorageR2:
		require("R2_ACCOUNT_ID", c.R2.AccountID)
		require("R2_ACCESS_KEY", c.R2.AccessKey)
		require("R2_SECRET_KEY", c.R2.SecretKey)
		require("R2_BUCKET_NAME", c.R2.BucketName)
		require("R2_PUBLIC_URL", c.R2.PublicURL)
	case MediaStorageInline:
	default:
		return fmt.Errorf("invalid MEDIA_STORAGE value %q", c.MediaStorage)
	}

	switch c.Generation.Provider {
	case ProviderOpenAI:
		require("OPENAI_API_KEY", c.Generation.OpenAI.APIKey)
	case ProviderArk:
		require("ARK_MODEL", c.Generation.Ark.Model)
		if c.Generation.Ark.APIKey == "" && (c.Generation.Ark.AccessKey == "" || c.Generation.Ark.SecretKey == "") {
			missing = append(missing, "ARK_API_KEY")
		}
	default:
		return fmt.Errorf("invalid GENERATION_PROVIDER value %q", c.Generation.Provider)
	}

	if c.FailureThreshold < 1 {
		return fmt.Errorf("invalid COMMIT_FAILURE_THRESHOLD value %d", c.FailureThreshold)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return n, nil
}
