package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the interview service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Interview  InterviewConfig  `mapstructure:"interview"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Intake     IntakeConfig     `mapstructure:"intake"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai, local, etc.
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string   `mapstructure:"name"`
	APIName         string   `mapstructure:"api_name"`
	MaxTokens       int      `mapstructure:"max_tokens"`
	Temperature     float64  `mapstructure:"temperature"`
	CostPer1K       float64  `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64  `mapstructure:"cost_per_1k_output"`
	Capabilities    []string `mapstructure:"capabilities"` // generation, analysis, embedding, speech
}

// LLMRoutingConfig defines which model key handles each task family
type LLMRoutingConfig struct {
	Generation string `mapstructure:"generation"` // question text generation
	Analysis   string `mapstructure:"analysis"`   // topics, contradictions, scoring
	Embedding  string `mapstructure:"embedding"`  // answer embeddings
	Speech     string `mapstructure:"speech"`     // text to speech
	Fallback   string `mapstructure:"fallback"`   // used when a routed key is missing
}

// InterviewConfig carries session-level defaults and the decision thresholds.
// Zero values are filled by Normalize so a config file only needs overrides.
type InterviewConfig struct {
	TotalQuestions      int            `mapstructure:"total_questions"`
	RecentWindow        int            `mapstructure:"recent_window"`
	EmbeddingDimensions int            `mapstructure:"embedding_dimensions"`
	Decision            DecisionConfig `mapstructure:"decision"`
}

// DecisionConfig holds the priority-rule thresholds of the decision engine.
type DecisionConfig struct {
	ChallengeMinQuestion    int     `mapstructure:"challenge_min_question"`
	ChallengeCooldown       int     `mapstructure:"challenge_cooldown"`
	ContradictionConfidence float64 `mapstructure:"contradiction_confidence"`
	DeepDiveMinQuestion     int     `mapstructure:"deep_dive_min_question"`
	DeepDiveEndBuffer       int     `mapstructure:"deep_dive_end_buffer"`
	DeepDiveCooldown        int     `mapstructure:"deep_dive_cooldown"`
	DeepDiveTopicMentions   int     `mapstructure:"deep_dive_topic_mentions"`
	FollowupWordThreshold   int     `mapstructure:"followup_word_threshold"`
	FollowupCooldown        int     `mapstructure:"followup_cooldown"`
	ReferenceSimilarity     float64 `mapstructure:"reference_similarity"`
	ReferenceMinAge         int     `mapstructure:"reference_min_age"`
	ReferenceCooldown       int     `mapstructure:"reference_cooldown"`
	ProbeBudget             int     `mapstructure:"probe_budget"`
}

// Normalize applies the documented defaults for unset interview values.
func (c InterviewConfig) Normalize() InterviewConfig {
	if c.TotalQuestions <= 0 {
		c.TotalQuestions = 10
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = 3
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = 1536
	}
	c.Decision = c.Decision.Normalize()
	return c
}

// Normalize fills unset decision thresholds with the documented defaults.
func (d DecisionConfig) Normalize() DecisionConfig {
	if d.ChallengeMinQuestion <= 0 {
		d.ChallengeMinQuestion = 5
	}
	if d.ChallengeCooldown <= 0 {
		d.ChallengeCooldown = 2
	}
	if d.ContradictionConfidence <= 0 {
		d.ContradictionConfidence = 0.7
	}
	if d.DeepDiveMinQuestion <= 0 {
		d.DeepDiveMinQuestion = 4
	}
	if d.DeepDiveEndBuffer <= 0 {
		d.DeepDiveEndBuffer = 2
	}
	if d.DeepDiveCooldown <= 0 {
		d.DeepDiveCooldown = 3
	}
	if d.DeepDiveTopicMentions <= 0 {
		d.DeepDiveTopicMentions = 3
	}
	if d.FollowupWordThreshold <= 0 {
		d.FollowupWordThreshold = 50
	}
	if d.FollowupCooldown <= 0 {
		d.FollowupCooldown = 2
	}
	if d.ReferenceSimilarity <= 0 {
		d.ReferenceSimilarity = 0.85
	}
	if d.ReferenceMinAge <= 0 {
		d.ReferenceMinAge = 2
	}
	if d.ReferenceCooldown <= 0 {
		d.ReferenceCooldown = 2
	}
	if d.ProbeBudget <= 0 {
		d.ProbeBudget = 1
	}
	return d
}

// Validate checks decision thresholds that would break the waterfall if misconfigured.
func (d DecisionConfig) Validate() error {
	if d.ContradictionConfidence < 0 || d.ContradictionConfidence > 1 {
		return fmt.Errorf("interview.decision.contradiction_confidence must be within [0,1]")
	}
	if d.ReferenceSimilarity < 0 || d.ReferenceSimilarity > 1 {
		return fmt.Errorf("interview.decision.reference_similarity must be within [0,1]")
	}
	return nil
}

// SpeechConfig controls text-to-speech synthesis and the audio file cache.
type SpeechConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Voice         string        `mapstructure:"voice"`
	Speed         float64       `mapstructure:"speed"`
	CacheDir      string        `mapstructure:"cache_dir"`
	CacheMaxAge   time.Duration `mapstructure:"cache_max_age"`
	CacheMaxBytes int64         `mapstructure:"cache_max_bytes"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// Normalize applies speech defaults.
func (s SpeechConfig) Normalize() SpeechConfig {
	if strings.TrimSpace(s.Voice) == "" {
		s.Voice = "alloy"
	}
	if s.Speed <= 0 {
		s.Speed = 1.0
	}
	if strings.TrimSpace(s.CacheDir) == "" {
		s.CacheDir = filepath.Join(os.TempDir(), "parley-audio")
	}
	if s.CacheMaxAge <= 0 {
		s.CacheMaxAge = 7 * 24 * time.Hour
	}
	if s.CacheMaxBytes <= 0 {
		s.CacheMaxBytes = 512 << 20
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = 3
	}
	return s
}

// IntakeConfig controls resume and job-posting ingestion.
type IntakeConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	FetchTimeout time.Duration     `mapstructure:"fetch_timeout"`
	RenderJS     bool              `mapstructure:"render_js"`
	UserAgent    string            `mapstructure:"user_agent"`
	FetchPolicy  FetchPolicyConfig `mapstructure:"fetch_policy"`
}

// Normalize applies intake defaults.
func (i IntakeConfig) Normalize() IntakeConfig {
	if i.FetchTimeout <= 0 {
		i.FetchTimeout = 30 * time.Second
	}
	if strings.TrimSpace(i.UserAgent) == "" {
		i.UserAgent = "parley-intake/1.0"
	}
	i.FetchPolicy = i.FetchPolicy.Normalize()
	return i
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	LogFile          string        `mapstructure:"log_file"`
	CostTracking     bool          `mapstructure:"cost_tracking"`
	PeriodicLogs     bool          `mapstructure:"periodic_logs"`
	PeriodicInterval time.Duration `mapstructure:"periodic_interval"`
}

func (t TelemetryConfig) Validate() error {
	if t.PeriodicLogs && t.PeriodicInterval < 0 {
		return fmt.Errorf("telemetry.periodic_interval cannot be negative")
	}
	return nil
}

// Normalize applies telemetry defaults.
func (t TelemetryConfig) Normalize() TelemetryConfig {
	if t.PeriodicInterval == 0 {
		t.PeriodicInterval = 5 * time.Minute
	}
	return t
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	State    string         `mapstructure:"state"` // memory or redis
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	File     FileConfig     `mapstructure:"file"`
}

func (s StorageConfig) Validate() error {
	switch s.State {
	case "", "memory":
	case "redis":
		if err := s.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.state must be memory or redis, got %q", s.State)
	}
	return s.Postgres.Validate()
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a lib/pq connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, ssl)
}

// FileConfig contains file storage settings
type FileConfig struct {
	DataDir string `mapstructure:"data_dir"`
	LogDir  string `mapstructure:"log_dir"`
}

// SchedulerConfig controls the background maintenance loop.
type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	AudioPruneCron string        `mapstructure:"audio_prune_cron"`
	StaleSweepCron string        `mapstructure:"stale_sweep_cron"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
}

// Normalize applies scheduler defaults.
func (s SchedulerConfig) Normalize() SchedulerConfig {
	if strings.TrimSpace(s.AudioPruneCron) == "" {
		s.AudioPruneCron = "@hourly"
	}
	if strings.TrimSpace(s.StaleSweepCron) == "" {
		s.StaleSweepCron = "@daily"
	}
	if s.StaleAfter <= 0 {
		s.StaleAfter = 24 * time.Hour
	}
	if s.LockTTL <= 0 {
		s.LockTTL = 10 * time.Minute
	}
	return s
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("interview.total_questions", 10)
	viper.SetDefault("llm.routing.fallback", "")
	viper.SetDefault("speech.enabled", false)
	viper.SetDefault("intake.enabled", true)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
	viper.SetDefault("storage.state", "memory")
	viper.SetDefault("scheduler.enabled", true)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PARLEY")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (PARLEY_*)

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// unmarshal config
	var config Config

	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Interview = config.Interview.Normalize()
	config.Heuristics = config.Heuristics.Normalize()
	config.Speech = config.Speech.Normalize()
	config.Intake = config.Intake.Normalize()
	config.Telemetry = config.Telemetry.Normalize()
	config.Scheduler = config.Scheduler.Normalize()

	if err := config.Telemetry.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Validate(); err != nil {
		panic(err)
	}
	if err := config.Interview.Decision.Validate(); err != nil {
		panic(err)
	}
	if err := config.Intake.FetchPolicy.Validate(); err != nil {
		panic(err)
	}
	return &config
}
