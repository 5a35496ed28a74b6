package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Flash        FlashConfig        `yaml:"flash"`
	Logging      LoggingConfig      `yaml:"logging"`
	Inference    InferenceConfig    `yaml:"inference"`
	SummaryQuota SummaryQuotaConfig `yaml:"summary_quota"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Import       ImportConfig       `yaml:"import"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// GinMode is passed to gin.SetMode: debug, release or test.
	GinMode string `yaml:"gin_mode"`
	// CORSAllowedOrigins enables CORS on the JSON API when non-empty.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DatabaseConfig points at the file-backed sqlite database holding posts.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FlashConfig holds the secret used solely to sign flash notice cookies.
type FlashConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// InferenceConfig selects the summarization/tagging backend.
//
//	provider: "huggingface" (default) or "google"
type InferenceConfig struct {
	Provider        string        `yaml:"provider"`
	SummaryModel    string        `yaml:"summary_model"`
	TaggingModel    string        `yaml:"tagging_model"`
	GeminiModel     string        `yaml:"gemini_model"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	SummaryMinWords int           `yaml:"summary_min_words"`
	SummaryMaxWords int           `yaml:"summary_max_words"`
	TagCount        int           `yaml:"tag_count"`
	CandidateLabels []string      `yaml:"candidate_labels"`

	// secrets are read from the environment only
	GeminiAPIKey string `yaml:"-"`
	HFAPIToken   string `yaml:"-"`
}

// SummaryQuotaConfig caps inference calls per minute and per day.
type SummaryQuotaConfig struct {
	// RequestsPerMinute of zero or less means no per-minute cap.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerDay of zero or less means no daily cap.
	RequestsPerDay int `yaml:"requests_per_day"`
}

// MongoConfig enables the ai_logs audit collection when URI is set.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// KafkaConfig enables post event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers    string `yaml:"brokers"`
	Topic      string `yaml:"topic"`
	Partitions int    `yaml:"partitions"`
}

// RedisConfig enables the inference result cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ImportConfig controls URL and feed import.
type ImportConfig struct {
	// RenderJavaScript retries pages with no readable text in headless chrome.
	RenderJavaScript bool          `yaml:"render_javascript"`
	ChromePath       string        `yaml:"chrome_path"`
	RenderTimeout    time.Duration `yaml:"render_timeout"`
	// FeedLimit caps how many feed items one feed import turns into posts.
	FeedLimit int `yaml:"feed_limit"`
}

var config *AppConfig

func InitApp() {
	base := GetBasePath()

	// load environment variables
	godotenv.Load(filepath.Join(base, ENV_FILE))

	c, err := Load(filepath.Join(base, CONFIG_FILE))
	if err != nil {
		panic(err)
	}
	config = c
}

// Load reads a yaml config file, applies environment overrides and defaults.
// A missing file is not an error: defaults and the environment are used.
func Load(path string) (*AppConfig, error) {
	var c AppConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("FLASH_SECRET"); v != "" {
		c.Flash.Secret = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INFERENCE_PROVIDER"); v != "" {
		c.Inference.Provider = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.Import.ChromePath = v
	}
	c.Inference.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.Inference.HFAPIToken = os.Getenv("HF_API_TOKEN")
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Database.Path == "" {
		c.Database.Path = "blogs.db"
	}
	if c.Flash.CookieName == "" {
		c.Flash.CookieName = "autoblog_flash"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	inf := &c.Inference
	inf.Provider = strings.ToLower(strings.TrimSpace(inf.Provider))
	if inf.Provider == "" {
		inf.Provider = "huggingface"
	}
	if inf.SummaryModel == "" {
		inf.SummaryModel = "facebook/bart-large-cnn"
	}
	if inf.TaggingModel == "" {
		inf.TaggingModel = "facebook/bart-large-mnli"
	}
	if inf.GeminiModel == "" {
		inf.GeminiModel = "gemini-2.5-flash"
	}
	if inf.BaseURL == "" {
		inf.BaseURL = "https://api-inference.huggingface.co"
	}
	if inf.SummaryMinWords <= 0 {
		inf.SummaryMinWords = 25
	}
	if inf.SummaryMaxWords <= 0 {
		inf.SummaryMaxWords = 50
	}
	if inf.SummaryMaxWords < inf.SummaryMinWords {
		inf.SummaryMaxWords = inf.SummaryMinWords
	}
	if inf.TagCount <= 0 || inf.TagCount > MaxTagCount {
		inf.TagCount = MaxTagCount
	}
	if len(inf.CandidateLabels) == 0 {
		inf.CandidateLabels = append([]string(nil), DefaultCandidateLabels...)
	}

	if c.Import.ChromePath == "" {
		c.Import.ChromePath = "/usr/bin/chromium-browser"
	}
	if c.Import.RenderTimeout <= 0 {
		c.Import.RenderTimeout = 30 * time.Second
	}
	if c.Import.FeedLimit <= 0 {
		c.Import.FeedLimit = 5
	}

	if c.Mongo.Database == "" {
		c.Mongo.Database = "autoblog"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "autoblog.post.events"
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 3
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 7 * 24 * time.Hour
	}
}

// MaxTagCount caps how many labels are stored per post.
const MaxTagCount = 3

// DefaultCandidateLabels is the fixed tagging vocabulary.
var DefaultCandidateLabels = []string{
	"spiritual", "comedy", "incident", "love story", "moment", "technology",
	"news", "fashion", "lifestyle", "wellness", "health", "fitness",
	"travel", "home decor", "DIY", "motivation", "creativity", "gratitude",
	"reflection", "autumn", "winter", "spring", "summer", "events",
	"innovation", "beauty", "skincare", "cooking", "photography",
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return cwd
}
